// Package gdrive implements remote.Client based on Google Drive.
package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/remote"
)

var log = logging.Module("gdrive")

const (
	folderMimeType    = "application/vnd.google-apps.folder"
	uploadChunkSize   = 1 << 20
	uploadContentType = "application/octet-stream"

	// googleapi.Field values.
	idFields           = "id"
	listIDFields       = "files(id,name)"
	listEntryFields    = "files(id,name,mimeType,size,createdTime)"
	nextPageTokenField = "nextPageToken"
)

// Client is a remote.Client talking to the Google Drive v3 API.
type Client struct {
	service *drive.Service
}

// FindFolder implements remote.Client.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%v' and mimeType = '%v' and '%v' in parents and trashed = false",
		quote(name), folderMimeType, quote(parentID))

	return c.findFirst(ctx, q)
}

// FindFile implements remote.Client.
func (c *Client) FindFile(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name = '%v' and mimeType != '%v' and '%v' in parents and trashed = false",
		quote(name), folderMimeType, quote(parentID))

	return c.findFirst(ctx, q)
}

func (c *Client) findFirst(ctx context.Context, q string) (string, error) {
	files, err := c.service.Files.List().Q(q).Fields(listIDFields).PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", translateError(err)
	}

	if len(files.Files) == 0 {
		return "", remote.ErrNotFound
	}

	log(ctx).Debugf("query %v matched %v", q, files.Files[0].Id)

	return files.Files[0].Id, nil
}

// CreateFolder implements remote.Client.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	f, err := c.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields(idFields).Context(ctx).Do()
	if err != nil {
		return "", translateError(err)
	}

	return f.Id, nil
}

// ListChildren implements remote.Client.
func (c *Client) ListChildren(ctx context.Context, parentID string) ([]remote.Entry, error) {
	var result []remote.Entry

	consumer := func(files *drive.FileList) error {
		for _, f := range files.Files {
			e, err := toEntry(f)
			if err != nil {
				return err
			}

			result = append(result, e)
		}

		return nil
	}

	q := fmt.Sprintf("'%v' in parents and trashed = false", quote(parentID))

	if err := c.service.Files.List().Q(q).Fields(nextPageTokenField, listEntryFields).Pages(ctx, consumer); err != nil {
		return nil, translateError(err)
	}

	return result, nil
}

// ListFolders implements remote.Client.
func (c *Client) ListFolders(ctx context.Context, parentID string, limit int) ([]remote.Entry, error) {
	q := fmt.Sprintf("'%v' in parents and mimeType = '%v' and trashed = false", quote(parentID), folderMimeType)

	files, err := c.service.Files.List().Q(q).Fields(listEntryFields).PageSize(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, translateError(err)
	}

	result := make([]remote.Entry, 0, len(files.Files))

	for _, f := range files.Files {
		e, err := toEntry(f)
		if err != nil {
			return nil, err
		}

		result = append(result, e)
	}

	return result, nil
}

// CreateFile implements remote.Client.
func (c *Client) CreateFile(ctx context.Context, name, parentID string, data io.Reader) (string, error) {
	f, err := c.service.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(data,
		googleapi.ChunkSize(uploadChunkSize),
		googleapi.ContentType(uploadContentType),
	).Fields(idFields).Context(ctx).Do()
	if err != nil {
		return "", translateError(err)
	}

	return f.Id, nil
}

// UpdateFile implements remote.Client.
func (c *Client) UpdateFile(ctx context.Context, fileID string, data io.Reader) error {
	_, err := c.service.Files.Update(fileID, &drive.File{}).Media(data,
		googleapi.ChunkSize(uploadChunkSize),
		googleapi.ContentType(uploadContentType),
	).Fields(idFields).Context(ctx).Do()

	return translateError(err)
}

// DownloadFile implements remote.Client.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	res, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, translateError(err)
	}

	return res.Body, nil
}

// DeleteFolder implements remote.Client.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	return translateError(c.service.Files.Delete(folderID).Context(ctx).Do())
}

func toEntry(f *drive.File) (remote.Entry, error) {
	e := remote.Entry{
		ID:       f.Id,
		Name:     f.Name,
		IsFolder: f.MimeType == folderMimeType,
		Size:     f.Size,
	}

	if f.CreatedTime != "" {
		t, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			return remote.Entry{}, errors.Wrapf(err, "error parsing creation time of %v", f.Name)
		}

		e.CreatedAt = t
	}

	return e, nil
}

// quote escapes a value for use inside a single-quoted string of a Drive query.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ae *googleapi.Error

	if errors.As(err, &ae) {
		if ae.Code == http.StatusNotFound {
			return remote.ErrNotFound
		}

		return &remote.StatusError{Code: ae.Code, Err: err}
	}

	return errors.Wrap(err, "unexpected Google Drive error")
}

func scopes(opt *Options) []string {
	if opt.ReadOnly {
		return []string{drive.DriveReadonlyScope}
	}

	return []string{drive.DriveFileScope, drive.DriveMetadataReadonlyScope}
}

func credentialsJSON(opt *Options) ([]byte, error) {
	if len(opt.CredentialsJSON) > 0 {
		return opt.CredentialsJSON, nil
	}

	if opt.CredentialsFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(opt.CredentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading credentials file")
	}

	return data, nil
}

func tokenSourceFromUserToken(ctx context.Context, secrets []byte, tokenFile string, scopes ...string) (oauth2.TokenSource, error) {
	if len(secrets) == 0 {
		return nil, errors.New("client secrets are required to use a stored token")
	}

	cfg, err := google.ConfigFromJSON(secrets, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "google.ConfigFromJSON")
	}

	data, err := os.ReadFile(tokenFile) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "error reading token file")
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, errors.Wrap(err, "invalid token file")
	}

	return oauth2.ReuseTokenSource(tok, &persistingTokenSource{
		base:     cfg.TokenSource(ctx, tok),
		filename: tokenFile,
		last:     tok.AccessToken,
	}), nil
}

func tokenSourceFromServiceAccount(ctx context.Context, data []byte, scopes ...string) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "google.JWTConfigFromJSON")
	}

	return cfg.TokenSource(ctx), nil
}

// New creates new Google Drive-backed remote client with specified options.
//
// With a TokenFile the credentials must be OAuth client secrets, otherwise they are treated
// as service account credentials. Without any credentials the connection reuses
// application default credentials.
func New(ctx context.Context, opt *Options) (*Client, error) {
	var ts oauth2.TokenSource

	data, err := credentialsJSON(opt)
	if err != nil {
		return nil, err
	}

	switch {
	case opt.TokenFile != "":
		ts, err = tokenSourceFromUserToken(ctx, data, opt.TokenFile, scopes(opt)...)
	case len(data) > 0:
		ts, err = tokenSourceFromServiceAccount(ctx, data, scopes(opt)...)
	default:
		ts, err = google.DefaultTokenSource(ctx, scopes(opt)...)
	}

	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize token source")
	}

	return NewWithHTTPClient(ctx, oauth2.NewClient(ctx, ts))
}

// NewWithHTTPClient creates a client that sends requests through the provided HTTP client.
func NewWithHTTPClient(ctx context.Context, hc *http.Client, opts ...option.ClientOption) (*Client, error) {
	service, err := drive.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(hc)}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Drive client")
	}

	return &Client{service: service}, nil
}

var _ remote.Client = (*Client)(nil)
