package download

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ReleaseInfo GitHub发布信息
type ReleaseInfo struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
}

// UpdateStatus 版本检查结果
type UpdateStatus struct {
	LocalVersion    string `json:"local_version"`
	LatestVersion   string `json:"latest_version"`
	ReleaseURL      string `json:"release_url,omitempty"`
	ReleaseNotes    string `json:"release_notes,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

// LocalVersion reads the locally installed version from a file.
// Returns an empty string if the file does not exist.
func LocalVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LatestRelease 从GitHub API获取最新发布信息
func (d *Downloader) LatestRelease(ctx context.Context, apiURL string) (*ReleaseInfo, error) {
	var release ReleaseInfo

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetResult(&release).
		Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the latest release: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch the latest release: status %s", resp.Status())
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("no tag name found in release data")
	}

	return &release, nil
}

// CheckUpdate 比较本地版本与最新发布版本。
// 网络失败不致命，由调用方决定如何提示。
func (d *Downloader) CheckUpdate(ctx context.Context, versionFile, apiURL string) (*UpdateStatus, error) {
	status := &UpdateStatus{
		LocalVersion: LocalVersion(versionFile),
	}

	release, err := d.LatestRelease(ctx, apiURL)
	if err != nil {
		return status, err
	}

	status.LatestVersion = release.TagName
	status.ReleaseURL = release.HTMLURL
	status.ReleaseNotes = release.Body
	status.UpdateAvailable = status.LocalVersion == "" || status.LocalVersion != release.TagName

	return status, nil
}
