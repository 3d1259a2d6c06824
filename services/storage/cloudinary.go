package storagesvc

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
)

// attachments are spreadsheets and pdfs, stored as raw files
const resourceType = "raw"

var versionPrefix = regexp.MustCompile(`^v\d+/`)

// uploadAPI is the part of the Cloudinary upload API used here.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Cloudinary struct {
	api uploadAPI
}

var _ core.FileStorage = (*Cloudinary)(nil)

func NewCloudinary(conf core.StorageConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(conf.CloudinaryCloudName, conf.CloudinaryAPIKey, conf.CloudinaryAPISecret)
	if err != nil {
		return nil, errors.Wrap(err, "configuring cloudinary")
	}
	return &Cloudinary{api: &cld.Upload}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, folder string, file core.Attachment) (string, error) {
	res, err := c.api.Upload(ctx, file.Content, uploader.UploadParams{
		Folder:         folder,
		PublicID:       strings.TrimSuffix(path.Base(file.Filename), path.Ext(file.Filename)),
		ResourceType:   resourceType,
		UniqueFilename: api.Bool(true),
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to cloudinary")
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.SecureURL, nil
}

// Delete destroys the file behind url. Cloudinary answering anything but "ok" means it was not deleted.
func (c *Cloudinary) Delete(ctx context.Context, url string) (bool, error) {
	publicID := PublicID(url)
	if publicID == "" {
		return false, nil
	}
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	if err != nil {
		return false, errors.Wrap(err, "deleting from cloudinary")
	}
	if res.Error.Message != "" {
		return false, errors.New(res.Error.Message)
	}
	return res.Result == "ok", nil
}

// PublicID extracts the "<folder>/<name>" public ID from a delivery url.
func PublicID(url string) string {
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return versionPrefix.ReplaceAllString(strings.Join(parts[len(parts)-2:], "/"), "")
}
