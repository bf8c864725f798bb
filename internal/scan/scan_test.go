package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/ocr"
	"sparkscan/internal/portrait"
	"sparkscan/internal/record"
	"sparkscan/internal/screenshot"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/pkg/geometry"
)

type constReader struct{ text string }

func (r constReader) Read(img gocv.Mat, level ocr.Level) ([]ocr.Result, error) {
	return []ocr.Result{{Text: r.text, Confidence: 0.9}}, nil
}

type closingReader struct {
	constReader
	closed *atomic.Int32
}

func (r closingReader) Close() error {
	r.closed.Add(1)
	return nil
}

func testProcessor(t *testing.T) *Processor {
	t.Helper()
	v := vocab.NewVocabulary(map[vocab.Color][]string{
		vocab.Blue:  {"Speed", "Stamina"},
		vocab.Pink:  {"Turf"},
		vocab.Green: {"Shooting Star"},
		vocab.White: {"Corner Recovery"},
	}, nil)
	roster := vocab.NewRoster([]string{"Special Week"}, nil, map[string][]string{
		"Special Week": {"Shooting Star"},
	})
	p, err := NewProcessor(config.Default(), v, roster, nil, nil)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

// failingReader fails on dark regions and on anything at least failRows
// tall; everything else reads as text.
type failingReader struct {
	text     string
	failRows int
}

func (r failingReader) Read(img gocv.Mat, level ocr.Level) ([]ocr.Result, error) {
	if img.Mean().Val1 < 128 {
		return nil, errors.New("tesseract: empty page")
	}
	if r.failRows > 0 && img.Rows() >= r.failRows {
		return nil, errors.New("tesseract: page too large")
	}
	return []ocr.Result{{Text: r.text, Confidence: 0.9}}, nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	saveImage(t, path, img)
}

func saveImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestProcessFolderEmpty(t *testing.T) {
	p := testProcessor(t)
	out := p.ProcessFolder(context.Background(), t.TempDir(), constReader{})
	if out.Status != Skipped || out.Reason != ErrNoImages.Error() {
		t.Fatalf("outcome = %v %q", out.Status, out.Reason)
	}
}

func TestProcessFolderUnreadable(t *testing.T) {
	p := testProcessor(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := p.ProcessFolder(context.Background(), dir, constReader{text: "Special Week"})
	if out.Status != Skipped {
		t.Fatalf("status = %v, want skipped", out.Status)
	}
	if len(out.Items) != 1 || out.Items[0].Status != Unreadable {
		t.Errorf("items = %+v", out.Items)
	}
}

func TestProcessFolderProfileOnly(t *testing.T) {
	p := testProcessor(t)
	dir := filepath.Join(t.TempDir(), "run-001")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "01.png"), 540, 1100)

	out := p.ProcessFolder(context.Background(), dir, constReader{text: "Special Week"})
	if out.Status != Success {
		t.Fatalf("status = %v (%s)", out.Status, out.Reason)
	}
	rec := out.Record
	if rec.Name != "Special Week" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.EntryHash != record.EntryHash("run-001", "Special Week") {
		t.Errorf("hash = %s", rec.EntryHash)
	}
	if rec.GP1 != record.Unknown || rec.GP2 != record.Unknown {
		t.Errorf("grandparents = %s/%s", rec.GP1, rec.GP2)
	}
	if rec.Sparks.Len() != 0 {
		t.Errorf("sparks = %+v", rec.Sparks)
	}
}

func TestProcessFolderNoName(t *testing.T) {
	p := testProcessor(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "01.png"), 540, 1100)

	out := p.ProcessFolder(context.Background(), dir, constReader{})
	if out.Status != Skipped || out.Reason != ErrNoName.Error() {
		t.Fatalf("outcome = %v %q", out.Status, out.Reason)
	}
}

func TestProcessFolderSkipsBadScreenshot(t *testing.T) {
	p := testProcessor(t)
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "01.png"), 540, 1100)
	saveImage(t, filepath.Join(dir, "02.png"), image.NewRGBA(image.Rect(0, 0, 540, 1100)))
	writePNG(t, filepath.Join(dir, "03.png"), 540, 1100)

	out := p.ProcessFolder(context.Background(), dir, failingReader{text: "Special Week"})
	if out.Status != Success {
		t.Fatalf("status = %v (%s), want success", out.Status, out.Reason)
	}
	if out.Record.Name != "Special Week" {
		t.Errorf("name = %q", out.Record.Name)
	}
	if len(out.Items) != 3 {
		t.Fatalf("items = %+v", out.Items)
	}
	if out.Items[1].Status != OCRFailed || out.Items[1].Err == nil {
		t.Errorf("item 2 = %+v, want ocr failed", out.Items[1])
	}
	if out.Items[0].Status != Loaded || out.Items[2].Status != Loaded {
		t.Errorf("items = %+v", out.Items)
	}
}

func TestProcessFolderKeepsRecordWhenZonesFail(t *testing.T) {
	p := testProcessor(t)
	dir := t.TempDir()
	img := imaging.New(540, 1100, color.White)
	// highlight the inspiration tab button
	img = imaging.Paste(img, imaging.New(80, 30, color.RGBA{G: 200, A: 255}), image.Pt(370, 1060))
	saveImage(t, filepath.Join(dir, "01.png"), img)

	// only the full composite is that tall
	out := p.ProcessFolder(context.Background(), dir, failingReader{text: "Special Week", failRows: 1100})
	if out.Status != Success {
		t.Fatalf("status = %v (%s), want success", out.Status, out.Reason)
	}
	if out.Items[0].Tab != screenshot.Inspiration {
		t.Fatalf("tab = %v, want inspiration", out.Items[0].Tab)
	}
	rec := out.Record
	if rec.Sparks.Len() != 0 || rec.GP1 != record.Unknown || rec.GP2 != record.Unknown {
		t.Errorf("record = %+v", rec)
	}
}

func texture(w, h, seed int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*x*seed + y*y*7 + x*y*3) % 251)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestGrandparentFallsBackToPortrait(t *testing.T) {
	cfg := config.Default()
	master := texture(200, 300, 5)
	lib := portrait.NewLibrary(cfg.Portrait, nil)
	if err := lib.Add("Special Week", master); err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	v := vocab.NewVocabulary(map[vocab.Color][]string{vocab.Blue: {"Speed"}}, nil)
	p, err := NewProcessor(cfg, v, nil, lib, nil)
	if err != nil {
		t.Fatal(err)
	}

	zones := []geometry.RectInt{
		{X: 200, Y: 0, Width: 150, Height: 40},
		{X: 200, Y: 50, Width: 150, Height: 200},
	}
	box := cfg.Portrait.Box
	at := image.Pt(zones[1].X+box.X, zones[1].Y+box.Y)
	shot := imaging.Paste(imaging.New(400, 300, color.White),
		imaging.Crop(master, image.Rect(60, 40, 60+box.Width, 40+box.Height)), at)
	composite, err := screenshot.ToMat(shot)
	if err != nil {
		t.Fatal(err)
	}
	defer composite.Close()

	if got := p.grandparent(composite, zones, spark.GP1, nil); got != "Special Week" {
		t.Errorf("gp1 = %q, want Special Week", got)
	}
	// no zone for gp2
	if got := p.grandparent(composite, zones, spark.GP2, nil); got != record.Unknown {
		t.Errorf("gp2 = %q, want %s", got, record.Unknown)
	}
	green := []spark.Spark{{Color: vocab.Green, Name: "Shooting Star", Count: 1}}
	if got := p.grandparent(composite, zones, spark.GP1, green); got != "Special Week" {
		t.Errorf("gp1 with unknown green spark = %q", got)
	}
}

func TestGrandparent(t *testing.T) {
	roster := vocab.NewRoster(nil, nil, map[string][]string{"Special Week": {"Shooting Star"}})
	tests := []struct {
		name   string
		sparks []spark.Spark
		want   string
	}{
		{"owner found", []spark.Spark{
			{Color: vocab.Blue, Name: "Speed", Count: 3},
			{Color: vocab.Green, Name: "Shooting Star", Count: 1},
		}, "Special Week"},
		{"unknown skill", []spark.Spark{{Color: vocab.Green, Name: "Other", Count: 1}}, record.Unknown},
		{"no green", []spark.Spark{{Color: vocab.Blue, Name: "Speed", Count: 3}}, record.Unknown},
		{"empty", nil, record.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grandparent(tt.sparks, roster); got != tt.want {
				t.Errorf("Grandparent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunIsolatesPanics(t *testing.T) {
	var closed atomic.Int32
	folders := []string{"c", "a", "boom", "b"}
	process := func(ctx context.Context, folder string, reader ocr.Reader) Outcome {
		if folder == "boom" {
			panic("bad screenshot")
		}
		return Outcome{Folder: folder, Status: Success, Record: record.New(folder, "x")}
	}
	newReader := func() (ocr.Reader, error) {
		return closingReader{closed: &closed}, nil
	}

	report, err := Run(context.Background(), folders, 3, newReader, process, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Outcomes) != 4 {
		t.Fatalf("outcomes = %d, want 4", len(report.Outcomes))
	}
	want := []string{"a", "b", "boom", "c"}
	for i, o := range report.Outcomes {
		if o.Folder != want[i] {
			t.Errorf("outcome %d folder = %s, want %s", i, o.Folder, want[i])
		}
	}
	if report.Count(Failed) != 1 || report.Count(Success) != 3 {
		t.Errorf("failed=%d success=%d", report.Count(Failed), report.Count(Success))
	}
	if len(report.Records()) != 3 {
		t.Errorf("records = %d", len(report.Records()))
	}
	if closed.Load() != 3 {
		t.Errorf("closed readers = %d, want 3", closed.Load())
	}
	if report.RunID == "" {
		t.Error("empty run id")
	}
}

func TestRunReaderError(t *testing.T) {
	boom := errors.New("no tessdata")
	newReader := func() (ocr.Reader, error) { return nil, boom }
	process := func(ctx context.Context, folder string, reader ocr.Reader) Outcome {
		return Outcome{Folder: folder}
	}
	_, err := Run(context.Background(), []string{"a"}, 2, newReader, process, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestFoldersAndMove(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b", "a"} {
		if err := os.Mkdir(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "file.png"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	folders, err := Folders(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 || filepath.Base(folders[0]) != "a" {
		t.Fatalf("folders = %v", folders)
	}

	dest := filepath.Join(t.TempDir(), "processed")
	first, err := MoveProcessed(folders[0], dest)
	if err != nil {
		t.Fatalf("MoveProcessed: %v", err)
	}
	if first != filepath.Join(dest, "a") {
		t.Errorf("target = %s", first)
	}
	if err := os.Mkdir(folders[0], 0o755); err != nil {
		t.Fatal(err)
	}
	second, err := MoveProcessed(folders[0], dest)
	if err != nil {
		t.Fatalf("MoveProcessed again: %v", err)
	}
	if second == first {
		t.Errorf("second move overwrote the first")
	}
}

func TestWatcherReportsSettledFolder(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	found := make(chan string, 1)
	w := NewWatcher(dir, 100*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(folder string) {
			found <- folder
			cancel()
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	folder := filepath.Join(dir, "new-run")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "01.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-found:
		if got != folder {
			t.Errorf("folder = %s, want %s", got, folder)
		}
	case <-ctx.Done():
		t.Fatal("no folder reported")
	}
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func ExampleStatus() {
	fmt.Println(Success, Skipped, Failed)
	// Output: success skipped failed
}
