package afpacket

import "testing"

func TestRecomputeSize(t *testing.T) {
	tests := []struct {
		name     string
		bufferMB int
		snapLen  int
		pageSize int
	}{
		{"default snaplen", 8, 65535, 4096},
		{"small snaplen", 8, 1600, 4096},
		{"tiny buffer", 1, 65535, 4096},
		{"large pages", 64, 9000, 65536},
		{"jumbo snaplen", 16, 9000, 4096},
		{"odd snaplen", 8, 65000, 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frameSize, blockSize, numBlocks, err := recomputeSize(tt.bufferMB, tt.snapLen, tt.pageSize)
			if err != nil {
				t.Fatalf("recomputeSize failed: %v", err)
			}
			if frameSize%16 != 0 {
				t.Errorf("frameSize %d not 16-byte aligned", frameSize)
			}
			if frameSize < tt.snapLen {
				t.Errorf("frameSize %d smaller than snaplen %d", frameSize, tt.snapLen)
			}
			if blockSize%tt.pageSize != 0 {
				t.Errorf("blockSize %d not a multiple of page size %d", blockSize, tt.pageSize)
			}
			if blockSize < frameSize {
				t.Errorf("blockSize %d smaller than frameSize %d", blockSize, frameSize)
			}
			if blockSize%frameSize != 0 {
				t.Errorf("blockSize %d not a multiple of frameSize %d", blockSize, frameSize)
			}
			if blockSize > 4*1024*1024 && blockSize != frameSize {
				t.Errorf("blockSize %d above 4MB with more than one frame", blockSize)
			}
			if numBlocks < 1 {
				t.Errorf("numBlocks %d < 1", numBlocks)
			}
		})
	}
}

func TestRecomputeSizeOverBlockCap(t *testing.T) {
	// lcm(4096, 65600) is above 4MB, so frames are widened to whole pages.
	frameSize, blockSize, numBlocks, err := recomputeSize(8, 65535, 4096)
	if err != nil {
		t.Fatalf("recomputeSize failed: %v", err)
	}
	if frameSize != 69632 {
		t.Errorf("frameSize = %d, expected 69632", frameSize)
	}
	if blockSize != 60*69632 {
		t.Errorf("blockSize = %d, expected %d", blockSize, 60*69632)
	}
	if blockSize%frameSize != 0 || blockSize%4096 != 0 {
		t.Errorf("blockSize %d must be a multiple of frameSize %d and page size", blockSize, frameSize)
	}
	if numBlocks != 2 {
		t.Errorf("numBlocks = %d, expected 2", numBlocks)
	}
}

func TestRecomputeSizeInvalid(t *testing.T) {
	tests := []struct {
		name                        string
		bufferMB, snapLen, pageSize int
	}{
		{"zero buffer", 0, 65535, 4096},
		{"zero snaplen", 8, 0, 4096},
		{"zero page", 8, 65535, 0},
		{"unaligned page", 8, 65535, 4100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := recomputeSize(tt.bufferMB, tt.snapLen, tt.pageSize); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLCM(t *testing.T) {
	if got := lcm(4096, 1664); got != 53248 {
		t.Errorf("lcm(4096, 1664) = %d, expected 53248", got)
	}
	if got := lcm(0, 16); got != 0 {
		t.Errorf("lcm(0, 16) = %d, expected 0", got)
	}
}
