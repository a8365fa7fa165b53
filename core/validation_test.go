package core

import (
	"errors"
	"testing"
)

func TestValidateTextUnit(t *testing.T) {
	tests := []struct {
		name    string
		unit    TextUnit
		wantErr error
	}{
		{
			name:    "valid unit",
			unit:    TextUnit{ArticleID: "12", ArticleTitle: "Anarchism", SectionName: "History", Position: 0, Content: "Some text"},
			wantErr: nil,
		},
		{
			name:    "introduction has empty section",
			unit:    TextUnit{ArticleID: "12", Content: "Lead paragraph"},
			wantErr: nil,
		},
		{
			name:    "missing article id",
			unit:    TextUnit{Content: "text"},
			wantErr: ErrInvalidTextUnit,
		},
		{
			name:    "blank content",
			unit:    TextUnit{ArticleID: "12", Content: "  \n "},
			wantErr: ErrInvalidTextUnit,
		},
		{
			name:    "negative position",
			unit:    TextUnit{ArticleID: "12", Content: "text", Position: -1},
			wantErr: ErrInvalidTextUnit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTextUnit(tt.unit)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTextUnit() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTextUnit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBlocks(t *testing.T) {
	tests := []struct {
		name    string
		blocks  []Block
		wantErr bool
	}{
		{
			name:   "empty list",
			blocks: nil,
		},
		{
			name:   "single block to eof",
			blocks: []Block{{ByteOffset: 100, EndOffset: -1, ArticleCount: 3}},
		},
		{
			name: "contiguous blocks",
			blocks: []Block{
				{ByteOffset: 100, EndOffset: 199, ArticleCount: 2},
				{ByteOffset: 200, EndOffset: 299, ArticleCount: 1},
				{ByteOffset: 300, EndOffset: -1, ArticleCount: 1},
			},
		},
		{
			name: "gap between blocks",
			blocks: []Block{
				{ByteOffset: 100, EndOffset: 150, ArticleCount: 2},
				{ByteOffset: 200, EndOffset: -1, ArticleCount: 1},
			},
			wantErr: true,
		},
		{
			name: "eof before last",
			blocks: []Block{
				{ByteOffset: 100, EndOffset: -1, ArticleCount: 2},
				{ByteOffset: 200, EndOffset: -1, ArticleCount: 1},
			},
			wantErr: true,
		},
		{
			name: "last block bounded",
			blocks: []Block{
				{ByteOffset: 100, EndOffset: 199, ArticleCount: 2},
			},
			wantErr: true,
		},
		{
			name:    "empty block",
			blocks:  []Block{{ByteOffset: 100, EndOffset: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlocks(tt.blocks)
			if tt.wantErr && !errors.Is(err, ErrInvalidBlocks) {
				t.Errorf("ValidateBlocks() error = %v, want ErrInvalidBlocks", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateBlocks() unexpected error = %v", err)
			}
		})
	}
}
