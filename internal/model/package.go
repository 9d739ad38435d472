package model

const installPath = "/packaging/installPackage.apexp"

type Package struct {
	ID              string `json:"Id"`
	Name            string `json:"Name,omitempty"`
	NamespacePrefix string `json:"NamespacePrefix,omitempty"`
}

type PackageVersion struct {
	ID                string `json:"Id"`
	Name              string `json:"Name,omitempty"`
	MetadataPackageID string `json:"MetadataPackageId,omitempty"`
	MajorVersion      int    `json:"MajorVersion,omitempty"`
	MinorVersion      int    `json:"MinorVersion,omitempty"`
	PatchVersion      int    `json:"PatchVersion,omitempty"`
	ReleaseState      string `json:"ReleaseState,omitempty"`
}

// InstallURL возвращает относительную ссылку на установку версии в орге.
func (v PackageVersion) InstallURL() string {
	return installPath + "?p0=" + v.ID
}

