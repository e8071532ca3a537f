// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes WAV files using github.com/go-audio/wav.
//
// # Decoding
//
// PCM files with 16, 24 or 32 bit samples are supported, with any channel
// count and sample rate:
//
//	file, _ := os.Open("audio.wav")
//	source, err := wav.Decoder{}.Decode(file)
//	buf := make([]float32, 4096)
//	n, err := source.ReadSamples(buf)
//
// Input that is not an io.ReadSeeker is buffered in memory first.
//
// # Encoding
//
// Encoder streams float32 samples into a 16-bit PCM file. The header is
// completed on Close, so the destination must be seekable:
//
//	file, _ := os.Create("entry.wav")
//	enc := wav.NewEncoder(file, 48000, 1)
//	_ = enc.Write(samples)
//	_ = enc.Close()
//	_ = file.Close()
package wav
