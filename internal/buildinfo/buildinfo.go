// Package buildinfo reports the version stamped at link time, for example
// -ldflags "-X github.com/christofluyten/rinlog/internal/buildinfo.Version=v1.2.0".
package buildinfo

import (
    "fmt"
    "runtime"
    "runtime/debug"
)

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

func Info() map[string]string {
    commit := Commit
    if commit == "" { commit = vcsRevision() }
    return map[string]string{
        "version":   Version,
        "commit":    commit,
        "builtAt":   BuiltAt,
        "goVersion": runtime.Version(),
    }
}

// String is the one-line form printed by the CLI.
func String() string {
    i := Info()
    if i["commit"] == "" { return fmt.Sprintf("%s (%s)", i["version"], i["goVersion"]) }
    return fmt.Sprintf("%s %s (%s)", i["version"], i["commit"], i["goVersion"])
}

// vcsRevision falls back to the revision the go tool embedded, if any.
func vcsRevision() string {
    bi, ok := debug.ReadBuildInfo()
    if !ok { return "" }
    for _, s := range bi.Settings {
        if s.Key == "vcs.revision" {
            if len(s.Value) > 12 { return s.Value[:12] }
            return s.Value
        }
    }
    return ""
}
