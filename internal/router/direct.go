package router

import (
	"context"
	"path/filepath"

	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
	"github.com/jmagar/prodl/internal/transfer"
)

// DirectStrategy downloads direct media URLs with the transfer engine.
// HLS playlists are fetched segment by segment.
type DirectStrategy struct {
	Engine *transfer.Engine
}

// Fetch saves url under savePath as direct_<name> and returns that path.
func (d DirectStrategy) Fetch(ctx context.Context, url, savePath string, _ model.PlatformKind, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.Discard
	}
	name := helpers.FilenameFromURL(url)
	if transfer.IsPlaylistURL(url) {
		name = trimExt(name) + ".ts"
	}
	dest := filepath.Join(savePath, "direct_"+name)
	rep.Report(progress.Status(10, "Connecting..."))

	var err error
	if transfer.IsPlaylistURL(url) {
		err = d.Engine.FetchHLS(ctx, url, dest, rep)
	} else {
		err = d.Engine.Fetch(ctx, url, dest, rep)
	}
	if err != nil {
		return "", err
	}
	return dest, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
