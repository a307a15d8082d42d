package wframe

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/png"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	_ "golang.org/x/image/tiff"
)

// LoadSequence reads a capture sequence from files or directories of
// files. Frames are ordered by filename, which is how every sequence
// renderer numbers them. TIFF and PNG frames are promoted from
// integer channels to float; Radiance .hdr frames come in as float
// already.
func LoadSequence(args ...string) (Sequence, error) {
	files := []string{}

	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return Sequence{}, fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return Sequence{}, fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if content.IsDir() {
					continue
				}
				if isFrameFile(content.Name()) {
					files = append(files, filepath.Join(arg, content.Name()))
				}
			}

		default:
			if isFrameFile(item.Name()) {
				files = append(files, arg)
			}
		}
	}

	sort.Strings(files)

	seq := Sequence{}
	for i, filename := range files {
		img, err := loadFrameFile(filename)
		if err != nil {
			return Sequence{}, err
		}
		seq.Frames = append(seq.Frames, Frame{Num: i, Image: img})
	}

	if len(seq.Frames) > 0 {
		log.Printf("Loaded %d frames, %dx%d\n", len(seq.Frames),
			seq.Frames[0].Image.Bounds().Dx(), seq.Frames[0].Image.Bounds().Dy())
	}

	return seq, nil
}

func isFrameFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff", ".png", ".hdr":
		return true
	}
	return false
}

func loadFrameFile(filename string) (hdr.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	decoded, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode '%s': %v", filename, err)
	}

	return AsHDR(decoded), nil
}
