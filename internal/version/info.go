package version

import (
	"errors"
	"runtime/debug"
	"sync"
)

var ErrNoBuildInfo = errors.New("could not read build info")

// Info identifies the build that ran a migration. It's attached to every
// module outcome.
type Info struct {
	Version      string `json:"version"`
	GoVersion    string `json:"go_version"`
	Arch         string `json:"arch,omitempty"`
	OS           string `json:"os,omitempty"`
	Revision     string `json:"revision,omitempty"`
	RevisionTime string `json:"revision_time,omitempty"`
}

func (i *Info) String() string {
	if i == nil {
		return "unknown"
	}
	if i.Revision == "" {
		return i.Version
	}
	return i.Version + " (" + i.Revision + ")"
}

var GetInfo = sync.OnceValues(func() (*Info, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrNoBuildInfo
	}
	return fromBuildInfo(buildInfo), nil
})

func fromBuildInfo(buildInfo *debug.BuildInfo) *Info {
	info := &Info{
		Version:   buildInfo.Main.Version,
		GoVersion: buildInfo.GoVersion,
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.time":
			info.RevisionTime = setting.Value
		case "GOARCH":
			info.Arch = setting.Value
		case "GOOS":
			info.OS = setting.Value
		}
	}
	// vcs.modified can come before or after vcs.revision
	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" && info.Revision != "" {
			info.Revision += "+dirty"
		}
	}
	return info
}
