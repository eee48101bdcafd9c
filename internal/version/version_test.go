package version

import (
	"runtime"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.Date == "" {
		t.Errorf("build fields should have defaults: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("Platform = %q, want %q", info.Platform, want)
	}
	if Dirty == "false" && info.Dirty {
		t.Error("Dirty should be false for a default build")
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.0.0", Commit: "abc1234", Date: "2024-01-15T10:00:00Z"}
	if got := info.String(); got != "1.0.0 (abc1234) built 2024-01-15T10:00:00Z" {
		t.Errorf("String() = %q", got)
	}

	info.Dirty = true
	if got := info.String(); got != "1.0.0 (abc1234-dirty) built 2024-01-15T10:00:00Z" {
		t.Errorf("String() = %q", got)
	}
}

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "1.2.3"}, "1.2.3"},
		{Info{Version: "1.2.3", Dirty: true}, "1.2.3-dirty"},
		{Info{Version: "0.0.0-dev"}, "0.0.0-dev"},
	}

	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}
