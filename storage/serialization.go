// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docqa/core"
)

// Hand-written MUS serializers for the records the embedded backend stores.
// Timestamps are serialized as Unix microseconds.

var float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)

// ChunkRecordMUS serializes core.ChunkWithVector.
var ChunkRecordMUS = chunkRecordSer{}

type chunkRecordSer struct{}

func (chunkRecordSer) Marshal(c core.ChunkWithVector, bs []byte) (n int) {
	n = ord.String.Marshal(string(c.Chunk.ID), bs)
	n += ord.String.Marshal(c.Chunk.DocumentID, bs[n:])
	n += ord.String.Marshal(c.Chunk.Content, bs[n:])
	n += varint.Int.Marshal(c.Chunk.Index, bs[n:])
	n += varint.Int.Marshal(c.Chunk.WordCount, bs[n:])
	n += ord.String.Marshal(c.Chunk.Metadata.Filename, bs[n:])
	n += varint.Int64.Marshal(c.Chunk.Metadata.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(c.Chunk.Metadata.CharLength, bs[n:])
	n += ord.String.Marshal(c.Chunk.Metadata.ChunkMethod, bs[n:])
	n += float32SliceMUS.Marshal(c.Vector, bs[n:])
	n += ord.String.Marshal(c.Model, bs[n:])
	return n
}

func (chunkRecordSer) Unmarshal(bs []byte) (c core.ChunkWithVector, n int, err error) {
	var (
		n1 int
		id string
		ts int64
	)
	if id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	c.Chunk.ID = core.ChunkID(id)
	if c.Chunk.DocumentID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Chunk.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Chunk.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Chunk.WordCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Chunk.Metadata.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if ts, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	c.Chunk.Metadata.CreatedAt = time.UnixMicro(ts).UTC()
	if c.Chunk.Metadata.CharLength, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Chunk.Metadata.ChunkMethod, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if c.Model, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (chunkRecordSer) Size(c core.ChunkWithVector) (size int) {
	size = ord.String.Size(string(c.Chunk.ID))
	size += ord.String.Size(c.Chunk.DocumentID)
	size += ord.String.Size(c.Chunk.Content)
	size += varint.Int.Size(c.Chunk.Index)
	size += varint.Int.Size(c.Chunk.WordCount)
	size += ord.String.Size(c.Chunk.Metadata.Filename)
	size += varint.Int64.Size(c.Chunk.Metadata.CreatedAt.UnixMicro())
	size += varint.Int.Size(c.Chunk.Metadata.CharLength)
	size += ord.String.Size(c.Chunk.Metadata.ChunkMethod)
	size += float32SliceMUS.Size(c.Vector)
	size += ord.String.Size(c.Model)
	return size
}

func (s chunkRecordSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// DocumentMUS serializes Document records.
var DocumentMUS = documentSer{}

type documentSer struct{}

func (documentSer) Marshal(d Document, bs []byte) (n int) {
	n = ord.String.Marshal(d.ID, bs)
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.Content, bs[n:])
	n += ord.Bool.Marshal(d.EmbeddingsCompleted, bs[n:])
	n += ord.String.Marshal(string(d.EmbeddingStatus), bs[n:])
	n += varint.Int.Marshal(d.TotalChunks, bs[n:])
	n += ord.String.Marshal(d.EmbeddingModel, bs[n:])
	n += varint.Int64.Marshal(d.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(d.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (documentSer) Unmarshal(bs []byte) (d Document, n int, err error) {
	var (
		n1     int
		status string
		ts     int64
	)
	if d.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if d.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.EmbeddingsCompleted, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if status, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.EmbeddingStatus = core.EmbeddingStatus(status)
	if d.TotalChunks, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if d.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if ts, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.CreatedAt = time.UnixMicro(ts).UTC()
	if ts, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	d.UpdatedAt = time.UnixMicro(ts).UTC()
	return
}

func (documentSer) Size(d Document) (size int) {
	size = ord.String.Size(d.ID)
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.Content)
	size += ord.Bool.Size(d.EmbeddingsCompleted)
	size += ord.String.Size(string(d.EmbeddingStatus))
	size += varint.Int.Size(d.TotalChunks)
	size += ord.String.Size(d.EmbeddingModel)
	size += varint.Int64.Size(d.CreatedAt.UnixMicro())
	size += varint.Int64.Size(d.UpdatedAt.UnixMicro())
	return size
}

func (s documentSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalChunkRecord serializes a chunk+vector record to bytes.
func MarshalChunkRecord(c *core.ChunkWithVector) []byte {
	buf := make([]byte, ChunkRecordMUS.Size(*c))
	ChunkRecordMUS.Marshal(*c, buf)
	return buf
}

// UnmarshalChunkRecord deserializes a chunk+vector record from bytes.
func UnmarshalChunkRecord(data []byte) (*core.ChunkWithVector, error) {
	record, _, err := ChunkRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalDocument serializes a document record to bytes.
func MarshalDocument(d *Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*d))
	DocumentMUS.Marshal(*d, buf)
	return buf
}

// UnmarshalDocument deserializes a document record from bytes.
func UnmarshalDocument(data []byte) (*Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
