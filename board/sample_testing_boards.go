package board

// This file contains some sample boards, used solely for testing.

const (
	// SampleMixed is the board from the layout comment in the package doc,
	// with raw value 0x4312752186532731.
	SampleMixed = `
+------------------------+
|     2     8   128     4|
|     8    32    64   256|
|     2     4    32   128|
|     4     2     8    16|
+------------------------+
`
	// SampleGameOver is full and has no equal neighbours in any row or
	// column, so no slide is legal.
	SampleGameOver = `
+------------------------+
|     2     4     2     4|
|     4     2     4     2|
|     2     4     2     4|
|     4     2     4     2|
+------------------------+
`
	// SampleOnlyVertical is full, but its first column can be merged, so
	// only up and down are legal.
	SampleOnlyVertical = `
+------------------------+
|     2     4     8    16|
|     2    16     4     8|
|     4     8    16     2|
|     8     2     4    16|
+------------------------+
`
)
