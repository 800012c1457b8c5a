package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/keygen"
	"github.com/vovakirdan/codeshare-server/internal/store/remote"
)

const closeTimeout = 5 * time.Second

type room struct {
	store   *remote.Client
	session *collab.Session
	buf     *collab.Buffer
}

// openRoom dials the server and joins key as the saved identity.
func (g *globalFlags) openRoom(ctx context.Context, key string, logger *zerolog.Logger) (*room, error) {
	local, err := g.loadIdentity()
	if err != nil {
		return nil, err
	}

	st, err := remote.Dial(ctx, g.server, logger)
	if err != nil {
		return nil, err
	}
	buf := collab.NewBuffer()
	s, err := collab.Open(ctx, st, key, local, buf, buf, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if path, err := g.path(); err == nil {
		local.Key = key
		if _, err := identity.Save(path, local); err != nil {
			logger.Warn().Err(err).Msg("failed to remember room")
		}
	}
	return &room{store: st, session: s, buf: buf}, nil
}

func (r *room) close(logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := r.session.Close(ctx); err != nil {
		logger.Warn().Err(err).Msg("leave room")
	}
	_ = r.store.Close()
}

func newJoinCmd(g *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "join [key]",
		Short: "Mirror a room's buffer into a local file and follow peers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger()
			key := keygen.NewKey()
			if len(args) == 1 {
				key = args[0]
			}
			if file == "" {
				file = key + ".txt"
			}
			abs, err := filepath.Abs(file)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := g.openRoom(ctx, key, logger)
			if err != nil {
				return err
			}
			defer r.close(logger)

			if err := os.WriteFile(abs, []byte(r.buf.Value()), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", abs, err)
			}
			r.buf.OnChange(func(v string) {
				if err := os.WriteFile(abs, []byte(v), 0o644); err != nil {
					logger.Warn().Err(err).Str("file", abs).Msg("mirror remote code")
				}
			})
			logger.Info().Str("room", r.session.Key()).Str("file", abs).Msg("joined, edit the file to share changes")

			settings, err := g.path()
			if err != nil {
				return err
			}
			if settings, err = filepath.Abs(settings); err != nil {
				return err
			}
			return follow(ctx, r, abs, settings, logger)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "local file mirroring the room buffer (default <key>.txt)")
	return cmd
}

// follow pushes file edits, applies name and color changes from the settings
// file and logs peer changes until ctx ends or the connection drops.
func follow(ctx context.Context, r *room, path, settings string, logger *zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	// Watch directories: editors often save by renaming over the file.
	for _, dir := range []string{filepath.Dir(path), filepath.Dir(settings)} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var lastPeers string

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.store.Done():
			return r.store.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if ev.Name == settings {
				updateIdentity(ctx, r, settings, logger)
				continue
			}
			if ev.Name != path {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					logger.Warn().Err(err).Msg("read file")
				}
				continue
			}
			if string(data) != r.buf.Value() {
				r.buf.Type(string(data))
				r.session.LocalChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		case <-ticker.C:
			peers, err := r.session.Peers(ctx)
			if err != nil {
				continue
			}
			if s := describePeers(peers); s != lastPeers {
				lastPeers = s
				logger.Info().Int("peers", len(peers)).Msg(s)
			}
		}
	}
}

// updateIdentity republishes the local name and color after the settings
// file changed, e.g. through "codeshare settings" in another terminal.
func updateIdentity(ctx context.Context, r *room, settings string, logger *zerolog.Logger) {
	local, err := identity.Load(settings)
	if err != nil {
		logger.Warn().Err(err).Str("file", settings).Msg("read settings")
		return
	}
	if local.UserName != "" {
		if err := r.session.Rename(ctx, local.UserName); err != nil {
			logger.Warn().Err(err).Msg("rename")
		}
	}
	if local.Color != "" {
		if err := r.session.Recolor(ctx, local.Color); err != nil {
			logger.Warn().Err(err).Msg("recolor")
		}
	}
}

func describePeers(peers []collab.UserPresence) string {
	if len(peers) == 0 {
		return "no peers"
	}
	out := ""
	for i, p := range peers {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s(%s) at %d:%d", p.Name, p.Color, p.Position.LineNumber, p.Position.Column)
		if !p.Selection.Empty() {
			out += fmt.Sprintf(" selecting %d:%d-%d:%d",
				p.Selection.Begin.LineNumber, p.Selection.Begin.Column,
				p.Selection.End.LineNumber, p.Selection.End.Column)
		}
	}
	return out
}

func newPushCmd(g *globalFlags) *cobra.Command {
	var file, language string

	cmd := &cobra.Command{
		Use:   "push <key>",
		Short: "Replace a room's buffer with a file's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger()
			if file == "" {
				return errors.New("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if language != "" && !collab.ValidLanguage(language) {
				return fmt.Errorf("%w: %q", collab.ErrUnknownLanguage, language)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			r, err := g.openRoom(ctx, args[0], logger)
			if err != nil {
				return err
			}
			defer r.close(logger)

			if language != "" {
				if err := r.session.SetLanguage(ctx, language); err != nil {
					return err
				}
			}
			r.buf.Type(string(data))
			r.session.LocalChange()
			if err := r.session.Sync(ctx); err != nil {
				return err
			}
			logger.Info().Str("room", args[0]).Int("bytes", len(data)).Msg("pushed")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file to upload")
	cmd.Flags().StringVar(&language, "language", "", "also set the room language")
	return cmd
}
