package pixelops

import "fmt"

// FloatingPointPredictorEncode and Decode implement TIFF's floating-point
// predictor (Predictor == 3). Unlike the integer horizontal predictor, the
// difference is taken across a byte-plane transpose of the row: the most
// significant byte of every sample in the row is grouped together, then the
// next most significant, and so on, and only then is horizontal
// differencing applied — across the transposed stream, not the original
// sample layout. Samples are always treated as big-endian for this
// transform, independent of the file's own byte order, matching how the
// predictor is defined in the TIFF technical notes.
func FloatingPointPredictorEncode(data []byte, width, samplesPerPixel, bytesPerSample int) error {
	return floatPredictor(data, width, samplesPerPixel, bytesPerSample, true)
}

// FloatingPointPredictorDecode reverses FloatingPointPredictorEncode.
func FloatingPointPredictorDecode(data []byte, width, samplesPerPixel, bytesPerSample int) error {
	return floatPredictor(data, width, samplesPerPixel, bytesPerSample, false)
}

func floatPredictor(data []byte, width, samplesPerPixel, bytesPerSample int, encode bool) error {
	if bytesPerSample != 4 && bytesPerSample != 8 {
		return fmt.Errorf("pixelops: floating point predictor requires 4- or 8-byte samples, got %d", bytesPerSample)
	}
	count := width * samplesPerPixel
	rowBytes := count * bytesPerSample
	if rowBytes == 0 || len(data)%rowBytes != 0 {
		return fmt.Errorf("pixelops: data length %d is not a multiple of row size %d", len(data), rowBytes)
	}

	transposed := make([]byte, rowBytes)
	for r := 0; r*rowBytes < len(data); r++ {
		row := data[r*rowBytes : (r+1)*rowBytes]

		if encode {
			// Transpose sample-major -> plane-major.
			for i := 0; i < count; i++ {
				for b := 0; b < bytesPerSample; b++ {
					transposed[b*count+i] = row[i*bytesPerSample+b]
				}
			}
			// Difference across the whole transposed stream.
			for i := len(transposed) - 1; i >= 1; i-- {
				transposed[i] -= transposed[i-1]
			}
			copy(row, transposed)
		} else {
			copy(transposed, row)
			// Undo the difference across the whole transposed stream.
			for i := 1; i < len(transposed); i++ {
				transposed[i] += transposed[i-1]
			}
			// Transpose plane-major -> sample-major.
			for i := 0; i < count; i++ {
				for b := 0; b < bytesPerSample; b++ {
					row[i*bytesPerSample+b] = transposed[b*count+i]
				}
			}
		}
	}
	return nil
}
