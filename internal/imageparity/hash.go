package imageparity

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// MatchThreshold is the largest Hamming distance (in bits) still considered
// the same picture.
const MatchThreshold = 3

// Status is the verdict for one base key.
type Status string

const (
	StatusMatch    Status = "MATCH"
	StatusDiffer   Status = "DIFFER"
	StatusError    Status = "ERROR"
	StatusMissingA Status = "MISSING_A"
	StatusMissingB Status = "MISSING_B"
)

// PairVerdict maps a hash distance to MATCH or DIFFER.
func PairVerdict(distance int) Status {
	if distance <= MatchThreshold {
		return StatusMatch
	}
	return StatusDiffer
}

// HashImage normalizes img and returns its 64-bit difference hash.
func HashImage(img image.Image) (*goimagehash.ImageHash, error) {
	normalized, err := NormalizeImage(img)
	if err != nil {
		return nil, err
	}
	return goimagehash.DifferenceHash(normalized)
}

// HashFile decodes the image at path (honouring EXIF orientation) and hashes it.
// Zero-byte placeholders fail to decode and surface as an error.
func HashFile(path string) (*goimagehash.ImageHash, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	hash, err := HashImage(img)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return hash, nil
}

// Distance is the Hamming distance between two hashes in bits.
func Distance(a, b *goimagehash.ImageHash) (int, error) {
	return a.Distance(b)
}
