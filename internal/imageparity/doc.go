// Package imageparity compares two galleries of product images by perceptual
// hash.
//
// Files are paired by base key (file name without extension). Each image of a
// pair is normalized first: the largest connected non-white region is cropped
// and resized to a fixed square, so margin and re-encoding differences between
// the two sources do not register. The normalized images are difference-hashed
// and a pair matches when the hashes are within MatchThreshold bits.
package imageparity
