package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing/fstest"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/cryptoutil"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const (
	ManifestFile = "manifest.json"

	// maxSingleFile is the maximum size of a single file in the bundle
	maxSingleFile int64 = 10 * 1024 * 1024 // 10MB

	// maxTotalExtract is the maximum total size of extracted content
	maxTotalExtract int64 = 200 * 1024 * 1024 // 200MB
)

// Manifest lists what a bundle contains.
type Manifest struct {
	BuildID     string            `json:"build_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	URIs        []string          `json:"uris"`
	Files       map[string]string `json:"files"` // path -> sha256
}

// Bundle is a gzipped tar of rendered pages plus its manifest.
type Bundle struct {
	Data     []byte
	SHA256   string
	Manifest Manifest
}

// FilePath maps a page URI to its path inside the bundle.
// "/" is index.html, "/about/" is about/index.html, and asset paths
// such as "/static/site.css" keep their name.
func FilePath(uri string) string {
	p := strings.TrimPrefix(uri, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p + "index.html"
	}
	return p
}

// pack writes files and the manifest into a tar.gz. Entries are sorted and
// stamped with the manifest time so equal input gives equal bytes.
func pack(files map[string][]byte, m Manifest) (*Bundle, error) {
	m.Files = make(map[string]string, len(files))
	names := make([]string, 0, len(files))
	for name, data := range files {
		m.Files[name] = cryptoutil.SHA256Hex(data)
		names = append(names, name)
	}
	sort.Strings(names)
	sort.Strings(m.URIs)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, xerrors.Wrap(err, "encode manifest")
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	add := func(name string, data []byte) error {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  m.GeneratedAt,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return xerrors.Wrapf(err, "tar header %s", name)
		}
		if _, err := tw.Write(data); err != nil {
			return xerrors.Wrapf(err, "tar write %s", name)
		}
		return nil
	}

	for _, name := range names {
		if err := add(name, files[name]); err != nil {
			return nil, err
		}
	}
	if err := add(ManifestFile, manifest); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, xerrors.Wrap(err, "close tar")
	}
	if err := gw.Close(); err != nil {
		return nil, xerrors.Wrap(err, "close gzip")
	}

	data := buf.Bytes()
	return &Bundle{Data: data, SHA256: cryptoutil.SHA256Hex(data), Manifest: m}, nil
}

// Open extracts a bundle into an in-memory filesystem.
func Open(data []byte) (fs.FS, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gr.Close()

	mfs := make(fstest.MapFS)
	tr := tar.NewReader(gr)

	var totalBytes int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		cleanName := path.Clean(hdr.Name)
		if cleanName == "." || cleanName == "" {
			continue
		}
		if path.IsAbs(cleanName) {
			return nil, fmt.Errorf("absolute path in archive: %s", hdr.Name)
		}
		if strings.Contains(cleanName, "..") {
			return nil, fmt.Errorf("path traversal in archive: %s", hdr.Name)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("unsupported file type in archive: %s (type=%d)", cleanName, hdr.Typeflag)
		}
		if hdr.Size > maxSingleFile {
			return nil, fmt.Errorf("file %s exceeds max size (%d > %d)", cleanName, hdr.Size, maxSingleFile)
		}

		content, err := io.ReadAll(io.LimitReader(tr, maxSingleFile+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cleanName, err)
		}
		if int64(len(content)) > maxSingleFile {
			return nil, fmt.Errorf("file %s exceeds max size after read", cleanName)
		}
		totalBytes += int64(len(content))
		if totalBytes > maxTotalExtract {
			return nil, fmt.Errorf("total extracted size exceeds limit (%d bytes, max %d)", totalBytes, maxTotalExtract)
		}

		mfs[cleanName] = &fstest.MapFile{Data: content, Mode: 0o644}
	}

	return mfs, nil
}

// Verify checks the bundle hash and every file against the manifest.
func Verify(b *Bundle) error {
	if !cryptoutil.HashEqual(cryptoutil.SHA256Hex(b.Data), b.SHA256) {
		return xerrors.Newf("bundle hash mismatch: expected %s", b.SHA256)
	}
	fsys, err := Open(b.Data)
	if err != nil {
		return xerrors.Wrap(err, "open bundle")
	}

	raw, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return xerrors.Wrap(err, "read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return xerrors.Wrap(err, "decode manifest")
	}

	for name, want := range m.Files {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return xerrors.Wrapf(err, "manifest lists %s", name)
		}
		if !cryptoutil.HashEqual(cryptoutil.SHA256Hex(data), want) {
			return xerrors.Newf("hash mismatch for %s", name)
		}
	}
	return nil
}
