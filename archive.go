//go:build unix

package cmdrun

import (
	"path/filepath"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// AppFs is the filesystem consulted by the archive helpers before spawning
// the external tool. Swap for an afero memory fs in tests.
var AppFs afero.Fs = afero.NewOsFs()

// Zip archives sources into the destination zip file by invoking the platform
// zip tool in baseDir. Source paths are made relative to baseDir so the
// archive carries relative entries. extraArgs are passed through to the tool
// verbatim, before the computed paths. completion receives true iff the tool
// exited zero; a missing source fails fast without spawning anything.
func Zip(sources []string, extraArgs []string, destination string, baseDir string, completion func(bool)) {
	rels := make([]string, 0, len(sources))
	for _, src := range sources {
		rel := src
		if filepath.IsAbs(src) {
			var err error
			rel, err = filepath.Rel(baseDir, src)
			if err != nil {
				log.WithError(err).WithField("source", src).Error("zip: source not relative to base")
				completeFalse(completion)
				return
			}
		}
		if ok, err := afero.Exists(AppFs, filepath.Join(baseDir, rel)); err != nil || !ok {
			log.WithField("source", src).Error("zip: source does not exist")
			completeFalse(completion)
			return
		}
		rels = append(rels, rel)
	}

	args := append(slices.Clone(extraArgs), destination)
	args = append(args, rels...)
	runArchiveTool("zip", args, baseDir, completion)
}

// Unzip extracts archive into the destination directory by invoking the
// platform unzip tool with destination as its working directory. extraArgs
// are passed through verbatim, before the archive path. completion receives
// true iff the tool exited zero.
func Unzip(archive string, extraArgs []string, destination string, completion func(bool)) {
	if ok, err := afero.Exists(AppFs, archive); err != nil || !ok {
		log.WithField("archive", archive).Error("unzip: archive does not exist")
		completeFalse(completion)
		return
	}
	if err := AppFs.MkdirAll(destination, 0o755); err != nil {
		log.WithError(err).WithField("destination", destination).Error("unzip: cannot create destination")
		completeFalse(completion)
		return
	}

	args := append(slices.Clone(extraArgs), archive)
	runArchiveTool("unzip", args, destination, completion)
}

func runArchiveTool(tool string, args []string, dir string, completion func(bool)) {
	r := New(tool, args, dir)
	r.Completion = func(status Status) {
		log.WithFields(log.Fields{
			"tool":   tool,
			"dir":    dir,
			"status": status.String(),
		}).Info("archive tool finished")
		if completion != nil {
			completion(status.Success())
		}
	}
	r.Run()
}

func completeFalse(completion func(bool)) {
	if completion != nil {
		go completion(false)
	}
}
