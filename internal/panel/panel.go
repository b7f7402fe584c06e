package panel

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
)

//go:embed web/*
var content embed.FS

// Handler serves the reporter page and its assets.
//
// When dir names an existing directory the files are read from it on each
// request; otherwise the copy built into the binary is used. Requests for
// files that do not exist get the reporter page, so deep links such as
// /device/kitchen-pi still load it.
func Handler(dir string) http.Handler {
	files := assets(dir)
	fileServer := http.FileServer(files)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		name := path.Clean("/" + r.URL.Path)
		if name != "/" && !exists(files, name) {
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}

// assets picks the directory override or the embedded page.
func assets(dir string) http.FileSystem {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return http.Dir(dir)
		}
	}

	web, err := fs.Sub(content, "web")
	if err != nil {
		panic("panel: embedded page missing: " + err.Error())
	}
	return http.FS(web)
}

func exists(files http.FileSystem, name string) bool {
	f, err := files.Open(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
