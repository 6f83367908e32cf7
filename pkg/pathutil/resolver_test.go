package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	p := New(Config{DataRoot: "/srv/ledger"})

	if got := p.GetRulesPath(); got != filepath.Join("/srv/ledger", "rules.db") {
		t.Errorf("GetRulesPath() = %q", got)
	}

	p = New(Config{DataRoot: "/srv/ledger", RulesPath: "/etc/rules.db"})
	if got := p.GetRulesPath(); got != "/etc/rules.db" {
		t.Errorf("GetRulesPath() = %q, want override", got)
	}
}

func TestGetLedgerPath(t *testing.T) {
	p := New(Config{DataRoot: "/srv/ledger"})

	tests := []struct {
		label   string
		want    string
		wantErr bool
	}{
		{label: "tokyo", want: filepath.Join("/srv/ledger", "tokyo", "ledger.db")},
		{label: "osaka-2", want: filepath.Join("/srv/ledger", "osaka-2", "ledger.db")},
		{label: "", wantErr: true},
		{label: "..", wantErr: true},
		{label: "a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := p.GetLedgerPath(tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetLedgerPath(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetLedgerPath(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	p := New(Config{DataRoot: "/srv/ledger"})

	if got := p.ResolvePath("tokyo/custom.db"); got != filepath.Join("/srv/ledger", "tokyo", "custom.db") {
		t.Errorf("relative path resolved to %q", got)
	}
	if got := p.ResolvePath("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("absolute path resolved to %q", got)
	}
	if got := p.ResolvePath(""); got != "" {
		t.Errorf("empty path resolved to %q", got)
	}
}

func TestEnsureParentDir(t *testing.T) {
	root := t.TempDir()
	p := New(Config{DataRoot: root})

	path, err := p.GetLedgerPath("tokyo")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.EnsureParentDir(path); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(root, "tokyo"))
	if err != nil || !info.IsDir() {
		t.Fatalf("partition directory not created: %v", err)
	}
	if p.FileExists(path) {
		t.Error("ledger file should not exist yet")
	}
}
