package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
)

// ErrEncryptedPlaylist is returned for HLS playlists with AES keys.
var ErrEncryptedPlaylist = errors.New("encrypted HLS playlists are not supported")

// IsPlaylistURL reports whether url points at an HLS playlist.
func IsPlaylistURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// FetchHLS downloads every segment of an HLS stream into dest. A master
// playlist is resolved to its highest-bandwidth variant first. Segments are
// appended to dest.part in order and the file is renamed on completion.
func (e *Engine) FetchHLS(ctx context.Context, playlistURL, dest string, rep progress.Reporter) error {
	if rep == nil {
		rep = progress.Discard
	}
	mediaURL, media, err := e.resolveMedia(ctx, playlistURL)
	if err != nil {
		return err
	}
	var segs []*url.URL
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			return ErrEncryptedPlaylist
		}
		ref, err := url.Parse(seg.URI)
		if err != nil {
			return fmt.Errorf("bad segment uri %q: %w", seg.URI, err)
		}
		segs = append(segs, mediaURL.ResolveReference(ref))
	}
	if media.Key != nil && media.Key.Method != "" && media.Key.Method != "NONE" {
		return ErrEncryptedPlaylist
	}
	if len(segs) == 0 {
		return fmt.Errorf("HLS playlist %s has no segments", playlistURL)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	part := PartialPath(dest)
	if _, err := preparePartial(part); err != nil {
		return err
	}
	f, err := openPartial(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return err
	}
	for i, seg := range segs {
		if err := e.copySegment(ctx, seg.String(), f); err != nil {
			f.Close()
			return err
		}
		pct := e.percent(int64(i+1), int64(len(segs)))
		rep.Report(progress.Status(pct, fmt.Sprintf("Segment %d of %d", i+1, len(segs))))
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close partial file: %w", err)
	}
	return finalize(part, dest)
}

func (e *Engine) resolveMedia(ctx context.Context, playlistURL string) (*url.URL, *m3u8.MediaPlaylist, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q: %w", model.ErrInvalidURL, playlistURL, err)
	}
	playlist, err := e.decodePlaylist(ctx, base.String())
	if err != nil {
		return nil, nil, err
	}
	if master, ok := playlist.(*m3u8.MasterPlaylist); ok {
		if len(master.Variants) == 0 {
			return nil, nil, errors.New("HLS master playlist has no variants")
		}
		variants := append([]*m3u8.Variant(nil), master.Variants...)
		sort.Slice(variants, func(x, y int) bool {
			return variants[x].Bandwidth > variants[y].Bandwidth
		})
		ref, err := url.Parse(variants[0].URI)
		if err != nil {
			return nil, nil, fmt.Errorf("bad variant uri %q: %w", variants[0].URI, err)
		}
		base = base.ResolveReference(ref)
		if playlist, err = e.decodePlaylist(ctx, base.String()); err != nil {
			return nil, nil, err
		}
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, nil, errors.New("expected HLS media playlist")
	}
	return base, media, nil
}

func (e *Engine) decodePlaylist(ctx context.Context, rawURL string) (m3u8.Playlist, error) {
	resp, cancel, err := e.get(ctx, rawURL, 0)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &model.TransportError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	playlist, _, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, fmt.Errorf("failed to decode playlist %s: %w", rawURL, err)
	}
	return playlist, nil
}

func (e *Engine) copySegment(ctx context.Context, rawURL string, w io.Writer) error {
	resp, cancel, err := e.get(ctx, rawURL, 0)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &model.TransportError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	ir := newIdleReader(resp.Body, e.opts.Timeout, cancel)
	defer ir.stop()
	if _, err := io.Copy(w, ir); err != nil {
		return &model.TransportError{URL: rawURL, Err: err}
	}
	return nil
}
