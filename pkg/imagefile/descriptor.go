// Package imagefile provides the image descriptor model, the pure format
// validation predicates that gate image selection, and the on-disk metadata
// resolver used to build descriptors from local files.
package imagefile

// Descriptor describes a candidate disk image. Descriptors are built by the
// metadata resolver for local files, or synthetically (path unset, SourceURL
// set) for images that still need to be downloaded.
type Descriptor struct {
	Path        string
	Size        int64
	HasMBR      bool
	IsCustomURL bool
	LogoPresent bool
	BmapPresent bool

	// SourceURL is set instead of Path when the image is a remote source.
	SourceURL string
}

// Local reports whether the descriptor points at an on-disk file.
func (d Descriptor) Local() bool {
	return d.Path != ""
}
