package task

import "strings"

// Vars holds the runtime values substituted into command argvs.
// Placeholders use the form {name}, e.g. {target} and {width}.
type Vars map[string]string

// Expand substitutes placeholders in a single argv. The input is not modified.
func Expand(argv []string, vars Vars) []string {
	if len(vars) == 0 {
		return append([]string(nil), argv...)
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	r := strings.NewReplacer(pairs...)

	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}
