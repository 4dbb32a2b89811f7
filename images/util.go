package images

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum generates a deterministic checksum for a Mat.
//
// The digest covers the dimensions and type as well as the pixel bytes, so two
// Mats with the same checksum are bit-identical rasters.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty" for an empty Mat.
//
// Example:
//
// ```go
//
//	checksum := ComputeMatChecksum(frame)
//	fmt.Printf("Frame checksum: %s\n", checksum)
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	hash := md5.New()
	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(mat.Rows()))
	binary.LittleEndian.PutUint32(header[4:], uint32(mat.Cols()))
	binary.LittleEndian.PutUint32(header[8:], uint32(mat.Type()))
	hash.Write(header[:])

	if !mat.IsContinuous() {
		c := mat.Clone()
		defer c.Close()
		mat = c
	}
	data, err := mat.DataPtrUint8()
	if err == nil {
		hash.Write(data)
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
