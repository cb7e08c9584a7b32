package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotEPUB indicates the file is not a readable EPUB container
var ErrNotEPUB = errors.New("not a valid EPUB container")

// Container is an opened EPUB with its document units loaded into memory.
// It is read-only after Open returns.
type Container struct {
	Title    string
	Author   string
	Language string // ISO-639-1 code as declared by the book

	// Spine lists document hrefs in the book's declared reading order.
	// Entries that could not be resolved against the manifest are omitted.
	Spine []string

	// Units maps document href to its raw markup. UnitOrder preserves the
	// manifest declaration order for iteration when the spine is unusable.
	Units     map[string]*ContentUnit
	UnitOrder []string
}

// ContentUnit is a single document from the container
type ContentUnit struct {
	Href string
	Data []byte
}

// container.xml structure
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// OPF package structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Titles    []string `xml:"title"`
	Creators  []string `xml:"creator"`
	Languages []string `xml:"language"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfSpine struct {
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// isDocument reports whether a manifest item holds book text
func isDocument(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

// Open reads an EPUB file and loads its document units.
// Individual units that are missing or unreadable are skipped; Open fails
// only when the container itself cannot be understood.
func Open(filePath string) (*Container, error) {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEPUB, err)
	}
	defer reader.Close()

	// Index zip entries by name for lookups
	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[f.Name] = f
	}

	// container.xml points at the OPF package document
	containerFile, ok := files["META-INF/container.xml"]
	if !ok {
		return nil, fmt.Errorf("%w: missing META-INF/container.xml", ErrNotEPUB)
	}

	var cx containerXML
	if err := decodeXML(containerFile, &cx); err != nil {
		return nil, fmt.Errorf("failed to parse container.xml: %w", err)
	}
	if len(cx.RootFiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfile declared", ErrNotEPUB)
	}

	opfPath := cx.RootFiles[0].FullPath
	opfFile, ok := files[opfPath]
	if !ok {
		return nil, fmt.Errorf("%w: package document not found: %s", ErrNotEPUB, opfPath)
	}

	var pkg opfPackage
	if err := decodeXML(opfFile, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package document: %w", err)
	}

	c := &Container{
		Units: make(map[string]*ContentUnit),
	}
	if len(pkg.Metadata.Titles) > 0 {
		c.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	if len(pkg.Metadata.Creators) > 0 {
		c.Author = strings.TrimSpace(pkg.Metadata.Creators[0])
	}
	if len(pkg.Metadata.Languages) > 0 {
		c.Language = strings.TrimSpace(pkg.Metadata.Languages[0])
	}

	// Hrefs resolve relative to the package document's directory
	opfDir := path.Dir(opfPath)

	// Load document units in manifest declaration order
	manifest := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		manifest[item.ID] = item
		if !isDocument(item.MediaType) {
			continue
		}

		entry, ok := files[resolveHref(opfDir, item.Href)]
		if !ok {
			continue // Skip entries missing from the archive
		}
		data, err := readZipFile(entry)
		if err != nil {
			continue // Skip unreadable entries
		}

		if _, exists := c.Units[item.Href]; !exists {
			c.Units[item.Href] = &ContentUnit{Href: item.Href, Data: data}
			c.UnitOrder = append(c.UnitOrder, item.Href)
		}
	}

	// Resolve the spine to document hrefs, dropping broken references
	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := manifest[ref.IDRef]
		if !ok || !isDocument(item.MediaType) {
			continue
		}
		c.Spine = append(c.Spine, item.Href)
	}

	return c, nil
}

// resolveHref joins a manifest href onto the package directory,
// normalizing separators for zip entry lookup
func resolveHref(opfDir, href string) string {
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, strings.ReplaceAll(href, "\\", "/"))
}

func decodeXML(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", f.Name, err)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
