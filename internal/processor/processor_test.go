package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meetops/zoom-to-drive/internal/config"
	"github.com/meetops/zoom-to-drive/internal/drive"
	"github.com/meetops/zoom-to-drive/internal/filename"
	"github.com/meetops/zoom-to-drive/internal/ledger"
	"github.com/meetops/zoom-to-drive/internal/members"
	"github.com/meetops/zoom-to-drive/internal/router"
	"github.com/meetops/zoom-to-drive/internal/zoom"
)

// fakeZoom implements ZoomService from canned data
type fakeZoom struct {
	members     []zoom.Member
	membersErr  error
	recordings  map[string][]zoom.Recording // keyed by user ID
	summaries   []zoom.SummaryItem
	details     map[string]*zoom.SummaryDetail
	files       map[string]string // download URL -> content
	downloadErr map[string]error
	deleted     []string
	deleteErr   error
}

func (f *fakeZoom) ListMembers(ctx context.Context) ([]zoom.Member, error) {
	return f.members, f.membersErr
}

func (f *fakeZoom) ListAllRecordings(ctx context.Context, userID string, from, to time.Time) zoom.RecordingsResult {
	return zoom.RecordingsResult{Recordings: f.recordings[userID]}
}

func (f *fakeZoom) ListAllSummaries(ctx context.Context, from, to time.Time) zoom.SummariesResult {
	return zoom.SummariesResult{Summaries: f.summaries}
}

func (f *fakeZoom) GetMeetingSummary(ctx context.Context, meetingUUID string) (*zoom.SummaryDetail, error) {
	detail, ok := f.details[meetingUUID]
	if !ok {
		return nil, errors.New("summary not found")
	}
	return detail, nil
}

func (f *fakeZoom) DeleteMeetingRecordings(ctx context.Context, meetingUUID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, meetingUUID)
	return nil
}

func (f *fakeZoom) DownloadFile(ctx context.Context, downloadURL string, writer io.Writer) error {
	if err := f.downloadErr[downloadURL]; err != nil {
		return err
	}
	_, err := io.WriteString(writer, f.files[downloadURL])
	return err
}

type upload struct {
	name     string
	folderID string
	mimeType string
	content  string
}

// fakeStorage implements Storage in memory
type fakeStorage struct {
	uploads   []upload
	ensureErr error
	uploadErr map[string]error // keyed by file name
}

func (f *fakeStorage) EnsureFolder(ctx context.Context, name, parentID string) (*drive.FileInfo, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	return &drive.FileInfo{
		ID:          parentID + "/" + name,
		Name:        name,
		WebViewLink: "https://drive.example/" + parentID + "/" + name,
	}, nil
}

func (f *fakeStorage) CreateFile(ctx context.Context, name string, content io.Reader, parentID, mimeType string) (*drive.FileInfo, error) {
	if err := f.uploadErr[name]; err != nil {
		return nil, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.uploads = append(f.uploads, upload{name: name, folderID: parentID, mimeType: mimeType, content: string(data)})
	return &drive.FileInfo{ID: "file-" + name, Name: name}, nil
}

// fakeLedger implements TrackingLedger in memory
type fakeLedger struct {
	processed map[string]bool
	appended  []ledger.Record
	errorRows []string
	loadErr   error
	appendErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[string]bool)}
}

func (f *fakeLedger) Load(ctx context.Context) error {
	return f.loadErr
}

func (f *fakeLedger) IsProcessed(topic, date string, kind ledger.Kind) bool {
	return f.processed[topic+"|"+date+"|"+string(kind)]
}

func (f *fakeLedger) Append(ctx context.Context, record ledger.Record) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, record)
	f.processed[record.Topic+"|"+record.Date+"|"+string(kindOf(record))] = true
	return nil
}

func kindOf(record ledger.Record) ledger.Kind {
	if record.FileTypes == ledger.SummaryMarker {
		return ledger.KindSummary
	}
	return ledger.KindRecording
}

func (f *fakeLedger) LogError(ctx context.Context, message, trace string) {
	f.errorRows = append(f.errorRows, message)
}

func allowAll(t *testing.T) members.Allowlist {
	t.Helper()
	list, err := members.NewAllowlist(members.AllowlistConfig{})
	if err != nil {
		t.Fatalf("Failed to create allowlist: %v", err)
	}
	return list
}

func testOptions() Options {
	return Options{
		From: time.Date(2026, 4, 24, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testRouter() *router.FolderRouter {
	return router.New([]config.FolderRoute{
		{Keyword: "ops", FolderID: "folder-ops"},
	}, "folder-default")
}

func testRecording() zoom.Recording {
	return zoom.Recording{
		UUID:      "uuid-1",
		Topic:     "Ops Review",
		HostEmail: "alice@example.com",
		StartTime: time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
		RecordingFiles: []zoom.RecordingFile{
			{FileType: "MP4", FileExtension: "MP4", DownloadURL: "https://zoom.example/video"},
			{FileType: "TRANSCRIPT", FileExtension: "VTT", DownloadURL: "https://zoom.example/vtt"},
			{FileType: "TIMELINE", FileExtension: "JSON", DownloadURL: "https://zoom.example/timeline"},
		},
	}
}

const sampleVTT = "WEBVTT\n\n1\n00:00:01.000 --> 00:00:03.000\nAlice: Hello there\n\n" +
	"2\n00:00:03.000 --> 00:00:05.000\nAlice: how are you\n\n" +
	"3\n00:00:05.000 --> 00:00:07.000\nBob: I'm fine\n"

func newTestProcessor(t *testing.T, zoomSvc *fakeZoom, storage *fakeStorage, tracking *fakeLedger, options Options) *Processor {
	t.Helper()
	return New(zoomSvc, storage, tracking, testRouter(), filename.NewNamer(""), allowAll(t), options)
}

func TestRun_TransfersRecording(t *testing.T) {
	zoomSvc := &fakeZoom{
		members: []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{
			"u1": {testRecording()},
		},
		files: map[string]string{
			"https://zoom.example/video": "video bytes",
			"https://zoom.example/vtt":   sampleVTT,
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RecordingsTransferred != 1 {
		t.Errorf("Expected 1 recording transferred, got %d", summary.RecordingsTransferred)
	}
	if summary.FilesTransferred != 2 {
		t.Errorf("Expected 2 files transferred, got %d", summary.FilesTransferred)
	}
	if summary.FilesSkipped != 1 {
		t.Errorf("Expected timeline file skipped, got %d", summary.FilesSkipped)
	}

	if len(storage.uploads) != 2 {
		t.Fatalf("Expected 2 uploads, got %d: %+v", len(storage.uploads), storage.uploads)
	}
	if storage.uploads[0].name != "2026-04-30_ops-review_video.mp4" {
		t.Errorf("Unexpected video name: %s", storage.uploads[0].name)
	}
	if storage.uploads[1].name != "2026-04-30_ops-review_transcript.txt" {
		t.Errorf("Unexpected transcript name: %s", storage.uploads[1].name)
	}

	// Routed via the ops keyword, under a date folder
	if storage.uploads[0].folderID != "folder-ops/2026-04-30" {
		t.Errorf("Expected routed date folder, got %s", storage.uploads[0].folderID)
	}

	// Caption content converted to speaker-grouped text
	expected := "Alice: Hello there how are you\n\nBob: I'm fine"
	if storage.uploads[1].content != expected {
		t.Errorf("Expected converted transcript %q, got %q", expected, storage.uploads[1].content)
	}

	if len(tracking.appended) != 1 {
		t.Fatalf("Expected 1 tracking row, got %d", len(tracking.appended))
	}
	row := tracking.appended[0]
	if row.Topic != "Ops Review" || row.Date != "2026-04-30" {
		t.Errorf("Unexpected tracking row: %+v", row)
	}
	if row.FileTypes != "MP4, TRANSCRIPT" {
		t.Errorf("Expected file types cell, got %q", row.FileTypes)
	}
	if row.Host != "alice@example.com" {
		t.Errorf("Expected host cell, got %q", row.Host)
	}

	if len(zoomSvc.deleted) != 0 {
		t.Errorf("Expected no source deletion when disabled, got %v", zoomSvc.deleted)
	}
}

func TestRun_DedupSkipsProcessedRecording(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()
	tracking.processed["Ops Review|2026-04-30|recording"] = true

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RecordingsSkipped != 1 {
		t.Errorf("Expected 1 recording skipped, got %d", summary.RecordingsSkipped)
	}
	if len(storage.uploads) != 0 {
		t.Errorf("Expected no uploads for deduped item, got %d", len(storage.uploads))
	}
	if len(tracking.appended) != 0 {
		t.Errorf("Expected no tracking row for deduped item, got %d", len(tracking.appended))
	}
}

func TestRun_DeleteAfterTransfer(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
		files: map[string]string{
			"https://zoom.example/video": "video bytes",
			"https://zoom.example/vtt":   sampleVTT,
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	options := testOptions()
	options.DeleteAfterTransfer = true
	p := newTestProcessor(t, zoomSvc, storage, tracking, options)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(zoomSvc.deleted) != 1 || zoomSvc.deleted[0] != "uuid-1" {
		t.Errorf("Expected source recording deleted, got %v", zoomSvc.deleted)
	}
}

func TestRun_NoDeleteWhenNothingTransferred(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
		downloadErr: map[string]error{
			"https://zoom.example/video": errors.New("download failed"),
			"https://zoom.example/vtt":   errors.New("download failed"),
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	options := testOptions()
	options.DeleteAfterTransfer = true
	p := newTestProcessor(t, zoomSvc, storage, tracking, options)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(zoomSvc.deleted) != 0 {
		t.Errorf("Expected no deletion on total transfer failure, got %v", zoomSvc.deleted)
	}
	if summary.Errors != 2 {
		t.Errorf("Expected 2 errors, got %d", summary.Errors)
	}

	// The row is still logged, with an empty file-types cell
	if len(tracking.appended) != 1 {
		t.Fatalf("Expected tracking row even with zero transfers, got %d", len(tracking.appended))
	}
	if tracking.appended[0].FileTypes != "" {
		t.Errorf("Expected empty file types, got %q", tracking.appended[0].FileTypes)
	}
}

func TestRun_FileErrorIsolation(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
		files: map[string]string{
			"https://zoom.example/vtt": sampleVTT,
		},
		downloadErr: map[string]error{
			"https://zoom.example/video": errors.New("download failed"),
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(storage.uploads) != 1 {
		t.Fatalf("Expected remaining file still transferred, got %d uploads", len(storage.uploads))
	}
	if summary.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", summary.Errors)
	}
	if len(tracking.errorRows) != 1 {
		t.Errorf("Expected 1 error row, got %d", len(tracking.errorRows))
	}
	if tracking.appended[0].FileTypes != "TRANSCRIPT" {
		t.Errorf("Expected only the transferred type logged, got %q", tracking.appended[0].FileTypes)
	}
}

func TestRun_EnsureFolderFailureAbortsItem(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
	}
	storage := &fakeStorage{ensureErr: errors.New("parent folder not found")}
	tracking := newFakeLedger()

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", summary.Errors)
	}
	if len(storage.uploads) != 0 {
		t.Errorf("Expected no uploads, got %d", len(storage.uploads))
	}
	if len(tracking.appended) != 0 {
		t.Errorf("Expected no tracking row for aborted item, got %d", len(tracking.appended))
	}
}

func TestRun_TransfersSummary(t *testing.T) {
	zoomSvc := &fakeZoom{
		members: []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		summaries: []zoom.SummaryItem{
			{
				MeetingUUID:        "uuid-s1",
				MeetingTopic:       "Ops Review",
				MeetingHostEmail:   "alice@example.com",
				SummaryCreatedTime: "2026-04-30T11:00:00Z",
			},
		},
		details: map[string]*zoom.SummaryDetail{
			"uuid-s1": {
				MeetingTopic:    "Ops Review",
				SummaryOverview: "The team reviewed operations.",
				SummaryDetails: []zoom.SummarySection{
					{Label: "Next Steps", Summary: "Follow up on incidents."},
				},
			},
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.SummariesTransferred != 1 {
		t.Errorf("Expected 1 summary transferred, got %d", summary.SummariesTransferred)
	}
	if len(storage.uploads) != 1 {
		t.Fatalf("Expected 1 upload, got %d", len(storage.uploads))
	}

	up := storage.uploads[0]
	if up.name != "2026-04-30_ops-review_summary.txt" {
		t.Errorf("Unexpected summary file name: %s", up.name)
	}
	if !strings.Contains(up.content, "NEXT STEPS") {
		t.Errorf("Expected formatted summary document, got:\n%s", up.content)
	}

	if len(tracking.appended) != 1 {
		t.Fatalf("Expected 1 tracking row, got %d", len(tracking.appended))
	}
	if tracking.appended[0].FileTypes != ledger.SummaryMarker {
		t.Errorf("Expected summary marker, got %q", tracking.appended[0].FileTypes)
	}
}

func TestRun_SummaryDedupIgnoresRecordingRows(t *testing.T) {
	zoomSvc := &fakeZoom{
		members: []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		summaries: []zoom.SummaryItem{
			{
				MeetingUUID:        "uuid-s1",
				MeetingTopic:       "Ops Review",
				MeetingHostEmail:   "alice@example.com",
				SummaryCreatedTime: "2026-04-30T11:00:00Z",
			},
		},
		details: map[string]*zoom.SummaryDetail{
			"uuid-s1": {MeetingTopic: "Ops Review", SummaryOverview: "Overview."},
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()
	// A recording row for the same topic and date must not block the summary
	tracking.processed["Ops Review|2026-04-30|recording"] = true

	p := newTestProcessor(t, zoomSvc, storage, tracking, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.SummariesTransferred != 1 {
		t.Errorf("Expected summary transferred despite recording row, got %d", summary.SummariesTransferred)
	}
}

func TestRun_TopicPrefixStripped(t *testing.T) {
	recording := testRecording()
	recording.Topic = "[REC] Ops Review"
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {recording}},
		files: map[string]string{
			"https://zoom.example/video": "video bytes",
			"https://zoom.example/vtt":   sampleVTT,
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()
	// Dedup row keyed by the stripped topic
	tracking.processed["Ops Review|2026-04-30|recording"] = true

	p := New(zoomSvc, storage, tracking, testRouter(), filename.NewNamer("[REC] "), allowAll(t), testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RecordingsSkipped != 1 {
		t.Errorf("Expected dedup against the stripped topic, got %d skipped", summary.RecordingsSkipped)
	}
}

func TestRun_AllowlistFiltersMembers(t *testing.T) {
	zoomSvc := &fakeZoom{
		members: []zoom.Member{
			{ID: "u1", Email: "alice@example.com"},
			{ID: "u2", Email: "mallory@example.com"},
		},
		recordings: map[string][]zoom.Recording{
			"u1": {testRecording()},
			"u2": {testRecording()},
		},
		files: map[string]string{
			"https://zoom.example/video": "video bytes",
			"https://zoom.example/vtt":   sampleVTT,
		},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	list := allowOnly(t, "alice@example.com")
	p := New(zoomSvc, storage, tracking, testRouter(), filename.NewNamer(""), list, testOptions())
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.MembersProcessed != 1 {
		t.Errorf("Expected 1 member processed, got %d", summary.MembersProcessed)
	}
	if summary.MembersSkipped != 1 {
		t.Errorf("Expected 1 member skipped, got %d", summary.MembersSkipped)
	}
}

func TestRun_DryRun(t *testing.T) {
	zoomSvc := &fakeZoom{
		members:    []zoom.Member{{ID: "u1", Email: "alice@example.com"}},
		recordings: map[string][]zoom.Recording{"u1": {testRecording()}},
	}
	storage := &fakeStorage{}
	tracking := newFakeLedger()

	options := testOptions()
	options.DryRun = true
	options.DeleteAfterTransfer = true
	p := newTestProcessor(t, zoomSvc, storage, tracking, options)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.RecordingsTransferred != 1 {
		t.Errorf("Expected dry-run to count the recording, got %d", summary.RecordingsTransferred)
	}
	if len(storage.uploads) != 0 || len(tracking.appended) != 0 || len(zoomSvc.deleted) != 0 {
		t.Error("Expected no writes in dry-run mode")
	}
}

func TestRun_LedgerUnavailableAborts(t *testing.T) {
	zoomSvc := &fakeZoom{members: []zoom.Member{{ID: "u1", Email: "alice@example.com"}}}
	tracking := newFakeLedger()
	tracking.loadErr = errors.New("sheet unreachable")

	p := newTestProcessor(t, zoomSvc, &fakeStorage{}, tracking, testOptions())
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("Expected run abort when tracking store is unavailable")
	}
}

func TestRun_MemberEnumerationFailureAborts(t *testing.T) {
	zoomSvc := &fakeZoom{
		membersErr: fmt.Errorf("request failed: %w", &zoom.AuthError{Type: "invalid_client", Reason: "bad credentials"}),
	}
	tracking := newFakeLedger()

	p := newTestProcessor(t, zoomSvc, &fakeStorage{}, tracking, testOptions())
	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Expected run abort on enumeration failure")
	}

	var authErr *zoom.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("Expected wrapped AuthError, got %v", err)
	}
}

func allowOnly(t *testing.T, emails ...string) members.Allowlist {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.txt")
	content := strings.Join(emails, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write allowlist: %v", err)
	}
	list, err := members.NewAllowlist(members.AllowlistConfig{FilePath: path})
	if err != nil {
		t.Fatalf("Failed to create allowlist: %v", err)
	}
	return list
}
