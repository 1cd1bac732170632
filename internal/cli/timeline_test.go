package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playout/internal/config"
	"playout/internal/schedule"
	"playout/pkg/csvplan"
)

func newTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Tools.FFProbe = filepath.Join(dir, "missing-ffprobe")
	cfg.Channels = []config.ChannelConfig{
		{ID: "tv-1", Name: "Channel One", Kind: "tv"},
		{ID: "radio-1", Name: "Radio One", Kind: "radio"},
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "playout.yaml"), data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	prevProject := projectDir
	prevJSON := outputJSON
	defer func() {
		projectDir = prevProject
		outputJSON = prevJSON
	}()

	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type dayPayload struct {
	Channel string          `json:"channel"`
	Date    string          `json:"date"`
	Items   []schedule.Item `json:"items"`
}

func listDay(t *testing.T, dir, channel, date string) dayPayload {
	t.Helper()
	out, _, err := runCLI(t, "--project", dir, "--json", "day", channel, date)
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	var payload dayPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode day output %q: %v", out, err)
	}
	return payload
}

func TestScheduleThenDayJSON(t *testing.T) {
	dir := newTestProject(t)

	out, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-08", "--title", "Morning news", "--duration", "00:30:00", "--at", "06:00:00")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !strings.Contains(out, "06:00:00-06:30:00") {
		t.Fatalf("expected slot in output, got %q", out)
	}

	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-08", "--title", "Weather", "--duration", "00:05:00"); err != nil {
		t.Fatalf("auto schedule: %v", err)
	}

	day := listDay(t, dir, "tv-1", "2024-05-08")
	if len(day.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(day.Items))
	}
	if day.Items[1].Title != "Weather" || day.Items[1].Start != schedule.Clock(6, 30, 0) {
		t.Fatalf("auto placement: got %+v", day.Items[1])
	}
	if day.Items[0].OrderPosition != 1 || day.Items[1].OrderPosition != 2 {
		t.Fatalf("positions: %d, %d", day.Items[0].OrderPosition, day.Items[1].OrderPosition)
	}
}

func TestDayTableOutput(t *testing.T) {
	dir := newTestProject(t)
	if _, _, err := runCLI(t, "--project", dir, "schedule", "radio-1",
		"--date", "2024-05-08", "--title", "Jingle", "--duration", "00:00:30", "--at", "08:00:00"); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	out, _, err := runCLI(t, "--project", dir, "day", "radio-1", "2024-05-08")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	for _, want := range []string{"START", "TITLE", "08:00:00", "08:00:30", "Jingle"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestScheduleConflictPrintsConflicts(t *testing.T) {
	dir := newTestProject(t)
	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-08", "--title", "Film", "--duration", "01:30:00", "--at", "20:00:00"); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	_, stderr, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-08", "--title", "Late show", "--duration", "00:30:00", "--at", "21:00:00")
	var conflict *schedule.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code = %d, want 2", exitCode(err))
	}
	if !strings.Contains(stderr, "Conflicts:") || !strings.Contains(stderr, "Film") {
		t.Fatalf("expected conflict table on stderr, got %q", stderr)
	}

	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1", "--replace",
		"--date", "2024-05-08", "--title", "Late show", "--duration", "00:30:00", "--at", "21:00:00"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	day := listDay(t, dir, "tv-1", "2024-05-08")
	if len(day.Items) != 1 || day.Items[0].Title != "Late show" {
		t.Fatalf("expected only the replacement, got %+v", day.Items)
	}
}

func TestMoveReorderRemove(t *testing.T) {
	dir := newTestProject(t)
	for _, title := range []string{"A", "B"} {
		if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
			"--date", "2024-05-08", "--title", title, "--duration", "00:10:00"); err != nil {
			t.Fatalf("schedule %s: %v", title, err)
		}
	}
	day := listDay(t, dir, "tv-1", "2024-05-08")
	a, b := day.Items[0], day.Items[1]

	if _, _, err := runCLI(t, "--project", dir, "move", a.ID, "00:05:00"); err == nil {
		t.Fatal("expected move onto B to conflict")
	}
	if _, _, err := runCLI(t, "--project", dir, "move", b.ID, "12:00:00"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, _, err := runCLI(t, "--project", dir, "reorder", b.ID, "up"); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	day = listDay(t, dir, "tv-1", "2024-05-08")
	if day.Items[1].ID != b.ID || day.Items[1].OrderPosition != 1 {
		t.Fatalf("expected B at position 1 after reorder, got %+v", day.Items)
	}

	if _, _, err := runCLI(t, "--project", dir, "remove", a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	day = listDay(t, dir, "tv-1", "2024-05-08")
	if len(day.Items) != 1 || day.Items[0].ID != b.ID || day.Items[0].OrderPosition != 1 {
		t.Fatalf("after remove: %+v", day.Items)
	}

	if _, _, err := runCLI(t, "--project", dir, "remove", a.ID); err == nil {
		t.Fatal("expected not found on second remove")
	}
}

func TestDuplicateDayPendingThenReplace(t *testing.T) {
	dir := newTestProject(t)
	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-08", "--title", "Source", "--duration", "00:30:00", "--at", "06:00:00"); err != nil {
		t.Fatalf("schedule source: %v", err)
	}
	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1",
		"--date", "2024-05-09", "--title", "Blocker", "--duration", "00:30:00", "--at", "06:10:00"); err != nil {
		t.Fatalf("schedule blocker: %v", err)
	}

	_, stderr, err := runCLI(t, "--project", dir, "duplicate", "day", "tv-1", "2024-05-08", "--no-progress")
	if !errors.Is(err, errPending) {
		t.Fatalf("expected pending conflicts, got %v", err)
	}
	if !strings.Contains(stderr, "Blocker") {
		t.Fatalf("expected conflict listing, got %q", stderr)
	}
	if got := listDay(t, dir, "tv-1", "2024-05-09"); len(got.Items) != 1 || got.Items[0].Title != "Blocker" {
		t.Fatalf("pending duplication must not write, got %+v", got.Items)
	}

	out, _, err := runCLI(t, "--project", dir, "duplicate", "day", "tv-1", "2024-05-08", "--no-progress", "--resolution", "replace")
	if err != nil {
		t.Fatalf("duplicate replace: %v", err)
	}
	if !strings.Contains(out, "2024-05-09") || !strings.Contains(out, "committed") {
		t.Fatalf("expected outcome table, got %q", out)
	}
	got := listDay(t, dir, "tv-1", "2024-05-09")
	if len(got.Items) != 1 || got.Items[0].Title != "Source" || got.Items[0].Start != schedule.Clock(6, 0, 0) {
		t.Fatalf("expected the copy only, got %+v", got.Items)
	}
}

func TestImportLineupContinuesPastConflicts(t *testing.T) {
	dir := newTestProject(t)
	lineup := filepath.Join(dir, "lineup.csv")
	data := "title,channel,start_time,duration\n" +
		"Ident,,06:00:00,00:00:30\n" +
		"News,,,00:30:00\n" +
		"Clash,,06:10:00,00:05:00\n" +
		"Music,radio-1,07:00:00,00:03:00\n"
	if err := os.WriteFile(lineup, []byte(data), 0o644); err != nil {
		t.Fatalf("write lineup: %v", err)
	}

	out, _, err := runCLI(t, "--project", dir, "import", lineup, "--channel", "tv-1", "--date", "2024-05-08", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "1 of 4 rows") {
		t.Fatalf("expected one failed row, got %v", err)
	}
	if !strings.Contains(out, "conflict") || !strings.Contains(out, "committed") {
		t.Fatalf("expected per-row statuses, got %q", out)
	}

	tv := listDay(t, dir, "tv-1", "2024-05-08")
	if len(tv.Items) != 2 {
		t.Fatalf("expected ident and news on tv-1, got %+v", tv.Items)
	}
	if tv.Items[1].Title != "News" || tv.Items[1].Start != schedule.Clock(6, 0, 30) {
		t.Fatalf("news should follow the ident, got %+v", tv.Items[1])
	}
	radio := listDay(t, dir, "radio-1", "2024-05-08")
	if len(radio.Items) != 1 || radio.Items[0].Title != "Music" {
		t.Fatalf("expected music on radio-1, got %+v", radio.Items)
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	dir := newTestProject(t)
	lineup := filepath.Join(dir, "lineup.csv")
	if err := os.WriteFile(lineup, []byte("title,start_time,duration\nIdent,06:00:00,00:00:30\n"), 0o644); err != nil {
		t.Fatalf("write lineup: %v", err)
	}
	if _, _, err := runCLI(t, "--project", dir, "import", lineup, "--channel", "tv-1", "--date", "2024-05-08", "--dry-run"); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if got := listDay(t, dir, "tv-1", "2024-05-08"); len(got.Items) != 0 {
		t.Fatalf("dry run wrote %d items", len(got.Items))
	}
}

func TestImportSkipsInvalidRows(t *testing.T) {
	dir := newTestProject(t)
	lineup := filepath.Join(dir, "lineup.csv")
	data := "title,start_time,duration\n" +
		"Ident,06:00,00:00:30\n" +
		"Broken,25:00,00:00:30\n"
	if err := os.WriteFile(lineup, []byte(data), 0o644); err != nil {
		t.Fatalf("write lineup: %v", err)
	}

	_, stderr, err := runCLI(t, "--project", dir, "import", lineup, "--channel", "tv-1", "--date", "2024-05-08", "--no-progress")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 rows") {
		t.Fatalf("expected the broken row to fail, got %v", err)
	}
	if !strings.Contains(stderr, "line 3: start_time") {
		t.Fatalf("expected the issue on stderr, got %q", stderr)
	}

	got := listDay(t, dir, "tv-1", "2024-05-08")
	if len(got.Items) != 1 || got.Items[0].Title != "Ident" || got.Items[0].Start != schedule.Clock(6, 0, 0) {
		t.Fatalf("expected only the ident at 06:00, got %+v", got.Items)
	}
}

func TestRowCommand(t *testing.T) {
	rows, err := csvplan.Parse(strings.NewReader("title,media,date,start_time,duration\nA,,2024-06-01,10:00:00,90\nB,asset-1,,,\n"), csvplan.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	first, err := rowCommand(rows[0], "tv-1", "2024-05-08", false)
	if err != nil {
		t.Fatalf("row 1: %v", err)
	}
	if first.Date != "2024-06-01" || first.Slot.Auto || first.Slot.At != schedule.Clock(10, 0, 0) {
		t.Fatalf("row 1 command: %+v", first)
	}
	if first.Media.DurationMs != 90000 {
		t.Fatalf("row 1 duration = %d", first.Media.DurationMs)
	}

	second, err := rowCommand(rows[1], "tv-1", "2024-05-08", true)
	if err != nil {
		t.Fatalf("row 2: %v", err)
	}
	if !second.Slot.Auto || second.Date != "2024-05-08" || second.Media.MediaID != "asset-1" || !second.Replace {
		t.Fatalf("row 2 command: %+v", second)
	}

	if _, err := rowCommand(rows[0], "", "2024-05-08", false); err == nil {
		t.Fatal("expected missing channel error")
	}
}

func TestParseDateArg(t *testing.T) {
	today := schedule.Date("2024-05-08")
	cases := map[string]schedule.Date{
		"":           today,
		"today":      today,
		"Tomorrow":   "2024-05-09",
		"yesterday":  "2024-05-07",
		"2024-12-31": "2024-12-31",
	}
	for in, want := range cases {
		got, err := parseDateArg(in, today)
		if err != nil || got != want {
			t.Fatalf("parseDateArg(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseDateArg("next week", today); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestChannelsJSON(t *testing.T) {
	dir := newTestProject(t)
	out, _, err := runCLI(t, "--project", dir, "--json", "channels")
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if !strings.Contains(out, `"tv-1"`) || !strings.Contains(out, `"radio-1"`) {
		t.Fatalf("expected both channels, got %q", out)
	}
}

func TestMediaAddAndList(t *testing.T) {
	dir := newTestProject(t)
	if _, _, err := runCLI(t, "--project", dir, "media", "add", "Station ident", "--id", "ident", "--kind", "jingle", "--duration", "00:00:07"); err != nil {
		t.Fatalf("media add: %v", err)
	}
	out, _, err := runCLI(t, "--project", dir, "media", "list")
	if err != nil {
		t.Fatalf("media list: %v", err)
	}
	if !strings.Contains(out, "ident") || !strings.Contains(out, "00:00:07") {
		t.Fatalf("expected asset row, got %q", out)
	}

	if _, _, err := runCLI(t, "--project", dir, "schedule", "tv-1", "--date", "2024-05-08", "--media", "ident", "--at", "06:00:00"); err != nil {
		t.Fatalf("schedule media: %v", err)
	}
	day := listDay(t, dir, "tv-1", "2024-05-08")
	if len(day.Items) != 1 || day.Items[0].DurationSeconds != 7 || day.Items[0].Title != "Station ident" {
		t.Fatalf("expected catalog duration and title, got %+v", day.Items)
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := "version: 1\ntimezone: Mars/Olympus\nchannels:\n  - id: tv-1\n    kind: tv\n"
	if err := os.WriteFile(filepath.Join(dir, "playout.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, stderr, err := runCLI(t, "--project", dir, "config", "validate")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(stderr, "Mars/Olympus") {
		t.Fatalf("expected timezone issue, got %q", stderr)
	}
}

func TestCheckJSONReportsToolsAndBackend(t *testing.T) {
	dir := newTestProject(t)
	out, _, err := runCLI(t, "--project", dir, "--json", "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var payload struct {
		Tools []struct {
			Tool      string `json:"tool"`
			Satisfied bool   `json:"satisfied"`
		} `json:"tools"`
		Backends []backendStatus `json:"backends"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode check output %q: %v", out, err)
	}
	if len(payload.Tools) != 1 || payload.Tools[0].Tool != "ffprobe" || payload.Tools[0].Satisfied {
		t.Fatalf("expected a missing pinned ffprobe, got %+v", payload.Tools)
	}
	if len(payload.Backends) != 1 || !payload.Backends[0].OK || payload.Backends[0].Component != "store (file)" {
		t.Fatalf("expected reachable file store, got %+v", payload.Backends)
	}

	// ffprobe is optional, so strict mode only fails on config or backend problems.
	if _, _, err := runCLI(t, "--project", dir, "check", "--strict"); err != nil {
		t.Fatalf("strict check: %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := newTestProject(t)
	t.Setenv("DATABASE_URL", "postgres://playout:s3cret@db:5432/playout")

	out, _, err := runCLI(t, "--project", dir, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "s3cret") || !strings.Contains(out, "REDACTED") {
		t.Fatalf("expected masked dsn, got:\n%s", out)
	}
	if !strings.Contains(out, "backend: postgres") {
		t.Fatalf("expected env overlay in effective config, got:\n%s", out)
	}

	out, _, err = runCLI(t, "--project", dir, "config", "show", "--raw")
	if err != nil {
		t.Fatalf("config show --raw: %v", err)
	}
	if strings.Contains(out, "postgres") {
		t.Fatalf("raw config should not include environment overrides:\n%s", out)
	}
}
