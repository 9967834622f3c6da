// Package drive wraps the Google Drive operations used as the destination
// storage for transferred recordings.
package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/meetops/zoom-to-drive/internal/googleauth"
)

// FolderMimeType is the MIME type for Google Drive folders
const FolderMimeType = "application/vnd.google-apps.folder"

// FileInfo describes a created file or folder
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	WebViewLink string
	Parents     []string
}

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
}

// NewClient creates a Drive client authenticated with a service account
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	ts, err := googleauth.TokenSource(ctx, credentialsFile, drive.DriveScope)
	if err != nil {
		return nil, err
	}

	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service}, nil
}

// NewClientWithService wraps an existing Drive service (used in tests)
func NewClientWithService(service *drive.Service) *Client {
	return &Client{service: service}
}

// EnsureFolder returns the folder with the given name under parentID,
// creating it when absent. Name matching is exact.
func (c *Client) EnsureFolder(ctx context.Context, name, parentID string) (*FileInfo, error) {
	if parentID == "" {
		return nil, fmt.Errorf("parent folder ID is required")
	}

	existing, err := c.FindFoldersByName(ctx, name, parentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}

	created, err := c.service.Files.Create(folder).
		Context(ctx).
		Fields("id, name, mimeType, webViewLink, parents").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	return convertFile(created), nil
}

// FindFoldersByName lists non-trashed folders with an exact name match under
// parentID. parentID may be empty to search everywhere the account can see.
func (c *Client) FindFoldersByName(ctx context.Context, name, parentID string) ([]*FileInfo, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQueryValue(name), FolderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQueryValue(parentID))
	}

	list, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name, mimeType, webViewLink, parents)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %q: %w", name, err)
	}

	folders := make([]*FileInfo, len(list.Files))
	for i, f := range list.Files {
		folders[i] = convertFile(f)
	}
	return folders, nil
}

// GetFolder retrieves folder metadata by ID. Used to validate configured
// destination folders before a run.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*FileInfo, error) {
	f, err := c.service.Files.Get(folderID).
		Context(ctx).
		Fields("id, name, mimeType, webViewLink, parents").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %s: %w", folderID, err)
	}
	if f.MimeType != FolderMimeType {
		return nil, fmt.Errorf("%s is not a folder", folderID)
	}
	return convertFile(f), nil
}

// CreateFile uploads content as a new file under parentID
func (c *Client) CreateFile(ctx context.Context, name string, content io.Reader, parentID, mimeType string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if parentID == "" {
		return nil, fmt.Errorf("parent folder ID is required")
	}

	file := &drive.File{
		Name:     name,
		Parents:  []string{parentID},
		MimeType: mimeType,
	}

	created, err := c.service.Files.Create(file).
		Context(ctx).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id, name, mimeType, size, webViewLink, parents").
		SupportsAllDrives(true).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file %q: %w", name, err)
	}

	return convertFile(created), nil
}

func convertFile(f *drive.File) *FileInfo {
	return &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
	}
}

// escapeQueryValue escapes single quotes and backslashes for Drive query strings
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
