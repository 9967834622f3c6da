// Package processor drives the transfer pipeline: it walks account members,
// moves their recordings and AI summaries into Drive and records every
// outcome in the tracking ledger.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meetops/zoom-to-drive/internal/drive"
	"github.com/meetops/zoom-to-drive/internal/filename"
	"github.com/meetops/zoom-to-drive/internal/ledger"
	"github.com/meetops/zoom-to-drive/internal/logging"
	"github.com/meetops/zoom-to-drive/internal/members"
	"github.com/meetops/zoom-to-drive/internal/router"
	"github.com/meetops/zoom-to-drive/internal/summarydoc"
	"github.com/meetops/zoom-to-drive/internal/transcript"
	"github.com/meetops/zoom-to-drive/internal/zoom"
)

// ZoomService is the Zoom API surface the processor consumes
type ZoomService interface {
	ListMembers(ctx context.Context) ([]zoom.Member, error)
	ListAllRecordings(ctx context.Context, userID string, from, to time.Time) zoom.RecordingsResult
	ListAllSummaries(ctx context.Context, from, to time.Time) zoom.SummariesResult
	GetMeetingSummary(ctx context.Context, meetingUUID string) (*zoom.SummaryDetail, error)
	DeleteMeetingRecordings(ctx context.Context, meetingUUID string) error
	DownloadFile(ctx context.Context, downloadURL string, writer io.Writer) error
}

// Storage is the destination file store
type Storage interface {
	EnsureFolder(ctx context.Context, name, parentID string) (*drive.FileInfo, error)
	CreateFile(ctx context.Context, name string, content io.Reader, parentID, mimeType string) (*drive.FileInfo, error)
}

// TrackingLedger gates dedup decisions and records outcomes
type TrackingLedger interface {
	Load(ctx context.Context) error
	IsProcessed(topic, date string, kind ledger.Kind) bool
	Append(ctx context.Context, record ledger.Record) error
	LogError(ctx context.Context, message, trace string)
}

// Options configures a processor run
type Options struct {
	From                time.Time
	To                  time.Time
	DeleteAfterTransfer bool
	DryRun              bool
}

// RunSummary aggregates counters for one run
type RunSummary struct {
	MembersProcessed      int
	MembersSkipped        int
	RecordingsTransferred int
	RecordingsSkipped     int
	SummariesTransferred  int
	SummariesSkipped      int
	FilesTransferred      int
	FilesSkipped          int
	Errors                int
	Partial               bool
}

// Processor is the single-threaded transfer orchestrator. Members are
// processed in enumeration order, recordings before summaries, files in
// page order; there is no parallel fan-out.
type Processor struct {
	zoomService ZoomService
	storage     Storage
	tracking    TrackingLedger
	router      *router.FolderRouter
	namer       *filename.Namer
	allowlist   members.Allowlist
	options     Options
}

// New creates a processor over its collaborators
func New(zoomService ZoomService, storage Storage, tracking TrackingLedger,
	folderRouter *router.FolderRouter, namer *filename.Namer,
	allowlist members.Allowlist, options Options) *Processor {
	return &Processor{
		zoomService: zoomService,
		storage:     storage,
		tracking:    tracking,
		router:      folderRouter,
		namer:       namer,
		allowlist:   allowlist,
		options:     options,
	}
}

// Run executes one full transfer pass. Authentication and ledger failures
// abort the run; everything else is isolated per item or per file.
func (p *Processor) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}

	// The dedup index must exist before any network or storage work
	if err := p.tracking.Load(ctx); err != nil {
		return nil, fmt.Errorf("tracking store unavailable: %w", err)
	}

	memberList, err := p.zoomService.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate members: %w", err)
	}

	logging.Info("Processing %d members from %s to %s",
		len(memberList), p.options.From.Format("2006-01-02"), p.options.To.Format("2006-01-02"))

	for _, member := range memberList {
		if !p.allowlist.IsAllowed(member.Email) {
			summary.MembersSkipped++
			continue
		}
		summary.MembersProcessed++

		result := p.zoomService.ListAllRecordings(ctx, member.ID, p.options.From, p.options.To)
		if result.Partial {
			summary.Partial = true
			summary.Errors += len(result.Errors)
		}

		for _, recording := range result.Recordings {
			p.processRecording(ctx, recording, summary)
		}
	}

	p.processSummaries(ctx, summary)

	logging.Info("Run complete: %d recordings transferred, %d skipped, %d summaries transferred, %d skipped, %d errors",
		summary.RecordingsTransferred, summary.RecordingsSkipped,
		summary.SummariesTransferred, summary.SummariesSkipped, summary.Errors)

	return summary, nil
}

// processRecording moves one meeting recording: dedup gate, route, per-file
// transfer, optional source deletion, tracking row.
func (p *Processor) processRecording(ctx context.Context, recording zoom.Recording, summary *RunSummary) {
	topic := p.namer.StripPrefix(recording.Topic)
	date := recording.StartTime.Format("2006-01-02")

	if p.tracking.IsProcessed(topic, date, ledger.KindRecording) {
		logging.Debug("Skipping already transferred recording: %s %s", topic, date)
		summary.RecordingsSkipped++
		return
	}

	if p.options.DryRun {
		logging.Info("[dry-run] Would transfer recording %q (%s, %d files)",
			topic, date, len(recording.RecordingFiles))
		summary.RecordingsTransferred++
		return
	}

	parentID := p.router.Resolve(topic)
	folder, err := p.storage.EnsureFolder(ctx, date, parentID)
	if err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to prepare folder for %q (%s): %v", topic, date, err),
			recording.UUID)
		return
	}

	var transferredTypes []string
	for _, file := range recording.RecordingFiles {
		if skipFile(file) {
			summary.FilesSkipped++
			continue
		}

		if err := p.transferFile(ctx, recording, file, topic, date, folder.ID); err != nil {
			p.recordError(ctx, summary, fmt.Sprintf("failed to transfer %s file of %q (%s): %v",
				file.FileType, topic, date, err), recording.UUID)
			continue
		}

		transferredTypes = append(transferredTypes, file.FileType)
		summary.FilesTransferred++
	}

	// Deleting the source with nothing transferred would destroy the only copy
	if p.options.DeleteAfterTransfer && len(transferredTypes) > 0 {
		if err := p.zoomService.DeleteMeetingRecordings(ctx, recording.UUID); err != nil {
			p.recordError(ctx, summary, fmt.Sprintf("failed to delete source recording %q (%s): %v",
				topic, date, err), recording.UUID)
		}
	}

	record := ledger.Record{
		Topic:       topic,
		Date:        date,
		FileTypes:   strings.Join(transferredTypes, ", "),
		FolderName:  date,
		FolderLink:  folder.WebViewLink,
		Transferred: time.Now(),
		Host:        recording.HostEmail,
	}
	if err := p.tracking.Append(ctx, record); err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to log recording %q (%s): %v", topic, date, err),
			recording.UUID)
		return
	}

	if len(transferredTypes) > 0 {
		summary.RecordingsTransferred++
		logging.Info("Transferred recording %q (%s): %s", topic, date, strings.Join(transferredTypes, ", "))
	}
}

// transferFile downloads one recording file, converts caption tracks to
// plain text and uploads the result.
func (p *Processor) transferFile(ctx context.Context, recording zoom.Recording, file zoom.RecordingFile, topic, date, folderID string) error {
	var buf bytes.Buffer
	if err := p.zoomService.DownloadFile(ctx, file.DownloadURL, &buf); err != nil {
		return err
	}

	var content io.Reader = &buf
	if isCaptionTrack(file.FileType) {
		content = strings.NewReader(transcript.Format(buf.String()))
	}

	name := p.namer.FileName(date, topic, file.FileType, file.FileExtension)
	_, err := p.storage.CreateFile(ctx, name, content, folderID, mimeFor(file.FileType))
	return err
}

// processSummaries transfers account-wide AI meeting summaries
func (p *Processor) processSummaries(ctx context.Context, summary *RunSummary) {
	result := p.zoomService.ListAllSummaries(ctx, p.options.From, p.options.To)
	if result.Partial {
		summary.Partial = true
		summary.Errors += len(result.Errors)
	}

	for _, item := range result.Summaries {
		if !p.allowlist.IsAllowed(item.MeetingHostEmail) {
			continue
		}
		p.processSummary(ctx, item, summary)
	}
}

func (p *Processor) processSummary(ctx context.Context, item zoom.SummaryItem, summary *RunSummary) {
	topic := p.namer.StripPrefix(item.MeetingTopic)
	date := ledger.NormalizeDate(item.SummaryCreatedTime)

	if p.tracking.IsProcessed(topic, date, ledger.KindSummary) {
		logging.Debug("Skipping already transferred summary: %s %s", topic, date)
		summary.SummariesSkipped++
		return
	}

	if p.options.DryRun {
		logging.Info("[dry-run] Would transfer summary %q (%s)", topic, date)
		summary.SummariesTransferred++
		return
	}

	detail, err := p.zoomService.GetMeetingSummary(ctx, item.MeetingUUID)
	if err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to fetch summary %q (%s): %v", topic, date, err),
			item.MeetingUUID)
		return
	}

	parentID := p.router.Resolve(topic)
	folder, err := p.storage.EnsureFolder(ctx, date, parentID)
	if err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to prepare folder for summary %q (%s): %v",
			topic, date, err), item.MeetingUUID)
		return
	}

	doc := summarydoc.Format(topic, date, detail)
	name := p.namer.SummaryName(date, topic)
	if _, err := p.storage.CreateFile(ctx, name, strings.NewReader(doc), folder.ID, "text/plain"); err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to upload summary %q (%s): %v", topic, date, err),
			item.MeetingUUID)
		return
	}

	record := ledger.Record{
		Topic:       topic,
		Date:        date,
		FileTypes:   ledger.SummaryMarker,
		FolderName:  date,
		FolderLink:  folder.WebViewLink,
		Transferred: time.Now(),
		Host:        item.MeetingHostEmail,
	}
	if err := p.tracking.Append(ctx, record); err != nil {
		p.recordError(ctx, summary, fmt.Sprintf("failed to log summary %q (%s): %v", topic, date, err),
			item.MeetingUUID)
		return
	}

	summary.SummariesTransferred++
	logging.Info("Transferred summary %q (%s)", topic, date)
}

func (p *Processor) recordError(ctx context.Context, summary *RunSummary, message, trace string) {
	logging.Error("%s", message)
	p.tracking.LogError(ctx, message, trace)
	summary.Errors++
	summary.Partial = true
}

// skipFile reports whether a recording file is excluded from transfer.
// Timeline JSON artifacts carry no user content.
func skipFile(file zoom.RecordingFile) bool {
	if strings.EqualFold(file.FileType, "TIMELINE") {
		return true
	}
	if strings.EqualFold(file.FileType, "JSON") ||
		strings.EqualFold(file.FileExtension, "JSON") {
		return true
	}
	return false
}

func isCaptionTrack(fileType string) bool {
	switch strings.ToUpper(fileType) {
	case "TRANSCRIPT", "CC":
		return true
	}
	return false
}

func mimeFor(fileType string) string {
	switch strings.ToUpper(fileType) {
	case "MP4":
		return "video/mp4"
	case "M4A":
		return "audio/mp4"
	case "TRANSCRIPT", "CC", "CHAT":
		return "text/plain"
	case "CSV":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
