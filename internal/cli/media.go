package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"playout/internal/catalog"
	"playout/internal/duration"
	"playout/internal/schedule"
	"playout/internal/tui"
)

var (
	mediaID        string
	mediaKind      string
	mediaURL       string
	mediaDuration  string
	mediaThumbnail string
	mediaResolve   bool
	mediaTrace     bool
)

func newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage the media library",
	}

	cmd.AddCommand(newMediaAddCmd())
	cmd.AddCommand(newMediaListCmd())
	cmd.AddCommand(newMediaProbeCmd())

	return cmd
}

func newMediaAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a media asset to the library",
		Args:  cobra.ExactArgs(1),
		RunE:  runMediaAdd,
	}

	cmd.Flags().StringVar(&mediaID, "id", "", "asset id (generated when empty)")
	cmd.Flags().StringVar(&mediaKind, "kind", string(catalog.MediaVideo), "video, audio, jingle, ad or live")
	cmd.Flags().StringVar(&mediaURL, "url", "", "source URL or local file path")
	cmd.Flags().StringVar(&mediaDuration, "duration", "", "duration as HH:MM:SS (resolved when empty)")
	cmd.Flags().StringVar(&mediaThumbnail, "thumbnail", "", "thumbnail URL")
	cmd.Flags().BoolVar(&mediaResolve, "resolve", true, "resolve a missing duration before storing")

	return cmd
}

func newMediaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List media assets",
		RunE:  runMediaList,
	}
}

func newMediaProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <media-id|url|path>",
		Short: "Resolve the duration of a media asset, URL or file",
		Args:  cobra.ExactArgs(1),
		RunE:  runMediaProbe,
	}

	cmd.Flags().BoolVar(&mediaTrace, "trace", false, "run every strategy and report each outcome")

	return cmd
}

func runMediaAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])
	if title == "" {
		return &schedule.ValidationError{Field: "title", Message: "title is required"}
	}
	kind, err := catalog.ParseMediaKind(mediaKind)
	if err != nil {
		return &schedule.ValidationError{Field: "kind", Message: err.Error()}
	}

	asset := catalog.MediaAsset{
		ID:           strings.TrimSpace(mediaID),
		Title:        title,
		Kind:         kind,
		SourceURL:    strings.TrimSpace(mediaURL),
		ThumbnailURL: strings.TrimSpace(mediaThumbnail),
		Active:       true,
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if mediaDuration != "" {
		ms, err := duration.ParseHMS(mediaDuration)
		if err != nil {
			return &schedule.ValidationError{Field: "duration", Message: err.Error()}
		}
		asset.DurationMs = ms
	}

	return withRuntime(cmd.Context(), func(rt *runtime) error {
		var warning *duration.ResolutionFailure
		if asset.DurationMs == 0 && mediaResolve && asset.SourceURL != "" {
			res, err := resolveWithStatus(cmd, rt, referenceFor(asset.SourceURL))
			if err != nil {
				return err
			}
			if res.Warning == nil {
				asset.DurationMs = res.DurationMs
			}
			warning = res.Warning
		}

		added, err := rt.store.Media().Add(cmd.Context(), asset)
		if err != nil {
			return err
		}
		rt.logger.WithField("media_id", added.ID).Info("media added")

		if outputJSON {
			return writeJSON(cmd, map[string]any{"media": added, "warning": warning})
		}
		cmd.Printf("Added %s (%s) %s\n", added.ID, added.Kind, formatMs(added.DurationMs))
		if warning != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), tui.WarningStyle.Render("warning: "+warning.Error()))
		}
		return nil
	})
}

func runMediaList(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		assets, err := rt.store.Media().List(cmd.Context())
		if err != nil {
			return err
		}
		if assets == nil {
			assets = []catalog.MediaAsset{}
		}

		if outputJSON {
			return writeJSON(cmd, map[string]any{"media": assets})
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tDURATION\tTITLE\tSOURCE")
		for _, a := range assets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Kind, formatMs(a.DurationMs), a.Title, tui.NonEmptyOrDash(a.SourceURL))
		}
		return w.Flush()
	})
}

func runMediaProbe(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])
	return withRuntime(cmd.Context(), func(rt *runtime) error {
		ref := referenceFor(target)
		asset, err := rt.store.Media().Get(cmd.Context(), target)
		switch {
		case err == nil:
			ref = duration.Reference{Asset: &asset}
		case !errors.Is(err, catalog.ErrNotFound):
			return err
		}

		if mediaTrace {
			entries, err := rt.resolver.Trace(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd, map[string]any{"reference": ref.String(), "strategies": entries})
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "STRATEGY\tRESOLVED\tDURATION\tREASON")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", e.Strategy, e.Result.Resolved, formatMs(e.Result.Ms), tui.NonEmptyOrDash(e.Result.Reason))
			}
			return w.Flush()
		}

		res, err := resolveWithStatus(cmd, rt, ref)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd, map[string]any{"reference": ref.String(), "resolution": res})
		}
		cmd.Printf("%s: %s via %s\n", ref, formatMs(res.DurationMs), res.Source)
		if res.Warning != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), tui.WarningStyle.Render("warning: "+res.Warning.Error()))
		}
		return nil
	})
}

// resolveWithStatus runs the resolver behind a spinner on interactive
// terminals.
func resolveWithStatus(cmd *cobra.Command, rt *runtime, ref duration.Reference) (duration.Resolution, error) {
	if !outputJSON && tui.Interactive(cmd.ErrOrStderr()) {
		sp := tui.StartSpinner(cmd.ErrOrStderr(), "Resolving duration of "+ref.String())
		defer sp.Stop()
	}
	return rt.resolver.Resolve(cmd.Context(), ref)
}

func referenceFor(target string) duration.Reference {
	if isLocalFile(target) {
		return duration.Reference{LocalPath: target}
	}
	return duration.Reference{URL: target}
}

func isLocalFile(target string) bool {
	if target == "" || strings.Contains(target, "://") {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

func formatMs(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	d := time.Duration(ms) * time.Millisecond
	secs := int(d / time.Second)
	out := fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	if rem := ms % 1000; rem != 0 {
		out += fmt.Sprintf(".%03d", rem)
	}
	return out
}
