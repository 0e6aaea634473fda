package task

import "testing"

func TestExpand(t *testing.T) {
	vars := Vars{"target": "mug.py", "width": "79"}

	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{
			name: "both placeholders",
			argv: []string{"black", "--line-length", "{width}", "{target}"},
			want: []string{"black", "--line-length", "79", "mug.py"},
		},
		{
			name: "no placeholders",
			argv: []string{"flake8", "setup.py"},
			want: []string{"flake8", "setup.py"},
		},
		{
			name: "placeholder inside an argument",
			argv: []string{"sh", "-c", "python3 {target} --check"},
			want: []string{"sh", "-c", "python3 mug.py --check"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(tt.argv, vars)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Expand()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExpandDoesNotMutateInput(t *testing.T) {
	argv := []string{"black", "{target}"}
	Expand(argv, Vars{"target": "mug.py"})

	if argv[1] != "{target}" {
		t.Errorf("input argv mutated: %v", argv)
	}
}
