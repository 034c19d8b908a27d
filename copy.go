package video_compressor

import (
	"fmt"
	"io"
	"os"
)

func copyFile(inputPath string, outputPath string) error {
	inputFile, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("Copy failed, could not open input file: %w", err)
	}
	defer inputFile.Close()
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("Copy failed, could not create output file: %w", err)
	}
	if _, err = io.Copy(outFile, inputFile); err != nil {
		outFile.Close()
		return fmt.Errorf("Copy failed: %w", err)
	}
	return outFile.Close()
}
