package tooling

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"pkgupload/internal/model"
)

const (
	sobjectPackage        = "MetadataPackage"
	sobjectPackageVersion = "MetadataPackageVersion"
	sobjectUploadRequest  = "PackageUploadRequest"
)

// Client обращается к Tooling API одного орга от имени одной сессии.
type Client struct {
	http        *http.Client
	instanceURL string
	sessionID   string
	apiVersion  string
}

func New(httpClient *http.Client, instanceURL, sessionID, apiVersion string) *Client {
	return &Client{
		http:        httpClient,
		instanceURL: strings.TrimRight(instanceURL, "/"),
		sessionID:   sessionID,
		apiVersion:  apiVersion,
	}
}

func (c *Client) InstanceURL() string {
	return c.instanceURL
}

func (c *Client) basePath() string {
	return "/services/data/v" + c.apiVersion + "/tooling"
}

func (c *Client) FindPackages(ctx context.Context) ([]model.Package, error) {
	var pkgs []model.Package
	soql := "SELECT Id, Name, NamespacePrefix FROM " + sobjectPackage
	if err := query(ctx, c, soql, &pkgs); err != nil {
		return nil, fmt.Errorf("find packages failed: %w", err)
	}
	return pkgs, nil
}

type createRequest struct {
	MetadataPackageID string `json:"MetadataPackageId"`
	IsReleaseVersion  bool   `json:"IsReleaseVersion"`
	VersionName       string `json:"VersionName"`
}

type createResponse struct {
	ID      string     `json:"id"`
	Success bool       `json:"success"`
	Errors  []apiIssue `json:"errors"`
}

// CreateUploadRequest создает запрос на загрузку бета-версии пакета и
// возвращает присвоенный сервером ID.
func (c *Client) CreateUploadRequest(ctx context.Context, packageID, versionName string) (string, error) {
	body := createRequest{
		MetadataPackageID: packageID,
		IsReleaseVersion:  false,
		VersionName:       versionName,
	}

	var resp createResponse
	path := c.basePath() + "/sobjects/" + sobjectUploadRequest + "/"
	if err := c.do(ctx, "POST", path, body, &resp); err != nil {
		return "", fmt.Errorf("create upload request failed: %w", err)
	}

	if !resp.Success || resp.ID == "" {
		return "", fmt.Errorf("create upload request failed: %w", issuesError(http.StatusCreated, resp.Errors))
	}
	return resp.ID, nil
}

func (c *Client) RetrieveUploadRequest(ctx context.Context, id string) (model.UploadRequest, error) {
	var req model.UploadRequest
	path := c.basePath() + "/sobjects/" + sobjectUploadRequest + "/" + url.PathEscape(id)
	if err := c.do(ctx, "GET", path, nil, &req); err != nil {
		return model.UploadRequest{}, fmt.Errorf("retrieve upload request %s failed: %w", id, err)
	}
	return req, nil
}

func (c *Client) FindPackageVersion(ctx context.Context, id string) (model.PackageVersion, error) {
	var versions []model.PackageVersion
	soql := "SELECT Id, Name, MetadataPackageId, MajorVersion, MinorVersion, PatchVersion, ReleaseState FROM " +
		sobjectPackageVersion + " WHERE Id = '" + escapeSOQL(id) + "'"
	if err := query(ctx, c, soql, &versions); err != nil {
		return model.PackageVersion{}, fmt.Errorf("find package version failed: %w", err)
	}
	if len(versions) == 0 {
		return model.PackageVersion{}, fmt.Errorf("%w: %s", model.ErrVersionNotFound, id)
	}
	return versions[0], nil
}

type describeResponse struct {
	Name   string `json:"name"`
	Fields []struct {
		Name string `json:"name"`
	} `json:"fields"`
}

// Describe возвращает имена полей sobject'а Tooling API.
func (c *Client) Describe(ctx context.Context, sobject string) ([]string, error) {
	var resp describeResponse
	path := c.basePath() + "/sobjects/" + url.PathEscape(sobject) + "/describe/"
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("describe %s failed: %w", sobject, err)
	}

	names := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		names = append(names, f.Name)
	}
	return names, nil
}
