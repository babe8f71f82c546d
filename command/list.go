package command

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
)

type Kind int

const (
	KindPipelineBarrier Kind = iota
	KindCopyBuffer
	KindCopyBufferToImage
	KindCopyImage
	KindBlitImage
	KindResolveImage
	KindClearColorImage
	KindClearDepthStencilImage
	KindResetQueryPool
	KindBeginQuery
	KindEndQuery
	KindWriteTimestamp
)

var kindMapping = map[Kind]string{
	KindPipelineBarrier:        "PipelineBarrier",
	KindCopyBuffer:             "CopyBuffer",
	KindCopyBufferToImage:      "CopyBufferToImage",
	KindCopyImage:              "CopyImage",
	KindBlitImage:              "BlitImage",
	KindResolveImage:           "ResolveImage",
	KindClearColorImage:        "ClearColorImage",
	KindClearDepthStencilImage: "ClearDepthStencilImage",
	KindResetQueryPool:         "ResetQueryPool",
	KindBeginQuery:             "BeginQuery",
	KindEndQuery:               "EndQuery",
	KindWriteTimestamp:         "WriteTimestamp",
}

func (k Kind) String() string {
	str, ok := kindMapping[k]
	if !ok {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return str
}

// Command is one recorded command. Only the fields relevant to Kind are populated.
type Command struct {
	Kind Kind

	Barrier PipelineBarrier

	SrcBuffer Buffer
	DstBuffer Buffer
	SrcImage  Image
	DstImage  Image
	SrcLayout core1_0.ImageLayout
	DstLayout core1_0.ImageLayout
	Filter    core1_0.Filter

	BufferCopies      []BufferCopy
	BufferImageCopies []BufferImageCopy
	ImageCopies       []ImageCopy
	Blits             []ImageBlit
	Resolves          []ImageResolve

	ClearColor        ClearColorValue
	ClearDepthStencil ClearDepthStencilValue
	Ranges            []ImageSubresourceRange

	QueryPool  QueryPool
	Query      int
	QueryCount int
	Stage      core1_0.PipelineStageFlags
}

// List is a Recorder that keeps commands in memory so that they can be inspected or replayed into
// another Recorder, such as one that writes to a native command buffer
type List struct {
	commands []Command
}

var _ Recorder = &List{}

func NewList() *List {
	return &List{}
}

func (l *List) Commands() []Command {
	return l.commands
}

func (l *List) Len() int {
	return len(l.commands)
}

// Count returns the number of recorded commands of the provided kind
func (l *List) Count(kind Kind) int {
	var count int
	for i := range l.commands {
		if l.commands[i].Kind == kind {
			count++
		}
	}
	return count
}

func (l *List) Reset() {
	l.commands = l.commands[:0]
}

// Replay issues every recorded command to target in recording order
func (l *List) Replay(target Recorder) {
	for i := range l.commands {
		c := &l.commands[i]
		switch c.Kind {
		case KindPipelineBarrier:
			target.PipelineBarrier(c.Barrier)
		case KindCopyBuffer:
			target.CopyBuffer(c.SrcBuffer, c.DstBuffer, c.BufferCopies...)
		case KindCopyBufferToImage:
			target.CopyBufferToImage(c.SrcBuffer, c.DstImage, c.DstLayout, c.BufferImageCopies...)
		case KindCopyImage:
			target.CopyImage(c.SrcImage, c.SrcLayout, c.DstImage, c.DstLayout, c.ImageCopies...)
		case KindBlitImage:
			target.BlitImage(c.SrcImage, c.SrcLayout, c.DstImage, c.DstLayout, c.Filter, c.Blits...)
		case KindResolveImage:
			target.ResolveImage(c.SrcImage, c.SrcLayout, c.DstImage, c.DstLayout, c.Resolves...)
		case KindClearColorImage:
			target.ClearColorImage(c.DstImage, c.DstLayout, c.ClearColor, c.Ranges...)
		case KindClearDepthStencilImage:
			target.ClearDepthStencilImage(c.DstImage, c.DstLayout, c.ClearDepthStencil, c.Ranges...)
		case KindResetQueryPool:
			target.ResetQueryPool(c.QueryPool, c.Query, c.QueryCount)
		case KindBeginQuery:
			target.BeginQuery(c.QueryPool, c.Query)
		case KindEndQuery:
			target.EndQuery(c.QueryPool, c.Query)
		case KindWriteTimestamp:
			target.WriteTimestamp(c.Stage, c.QueryPool, c.Query)
		default:
			panic(fmt.Sprintf("unknown command kind: %s", c.Kind))
		}
	}
}

func (l *List) PipelineBarrier(barrier PipelineBarrier) {
	l.commands = append(l.commands, Command{Kind: KindPipelineBarrier, Barrier: barrier})
}

func (l *List) CopyBuffer(src Buffer, dst Buffer, regions ...BufferCopy) {
	l.commands = append(l.commands, Command{
		Kind:         KindCopyBuffer,
		SrcBuffer:    src,
		DstBuffer:    dst,
		BufferCopies: regions,
	})
}

func (l *List) CopyBufferToImage(src Buffer, dst Image, dstLayout core1_0.ImageLayout, regions ...BufferImageCopy) {
	l.commands = append(l.commands, Command{
		Kind:              KindCopyBufferToImage,
		SrcBuffer:         src,
		DstImage:          dst,
		DstLayout:         dstLayout,
		BufferImageCopies: regions,
	})
}

func (l *List) CopyImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, regions ...ImageCopy) {
	l.commands = append(l.commands, Command{
		Kind:        KindCopyImage,
		SrcImage:    src,
		SrcLayout:   srcLayout,
		DstImage:    dst,
		DstLayout:   dstLayout,
		ImageCopies: regions,
	})
}

func (l *List) BlitImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, filter core1_0.Filter, regions ...ImageBlit) {
	l.commands = append(l.commands, Command{
		Kind:      KindBlitImage,
		SrcImage:  src,
		SrcLayout: srcLayout,
		DstImage:  dst,
		DstLayout: dstLayout,
		Filter:    filter,
		Blits:     regions,
	})
}

func (l *List) ResolveImage(src Image, srcLayout core1_0.ImageLayout, dst Image, dstLayout core1_0.ImageLayout, regions ...ImageResolve) {
	l.commands = append(l.commands, Command{
		Kind:      KindResolveImage,
		SrcImage:  src,
		SrcLayout: srcLayout,
		DstImage:  dst,
		DstLayout: dstLayout,
		Resolves:  regions,
	})
}

func (l *List) ClearColorImage(image Image, layout core1_0.ImageLayout, color ClearColorValue, ranges ...ImageSubresourceRange) {
	l.commands = append(l.commands, Command{
		Kind:       KindClearColorImage,
		DstImage:   image,
		DstLayout:  layout,
		ClearColor: color,
		Ranges:     ranges,
	})
}

func (l *List) ClearDepthStencilImage(image Image, layout core1_0.ImageLayout, value ClearDepthStencilValue, ranges ...ImageSubresourceRange) {
	l.commands = append(l.commands, Command{
		Kind:              KindClearDepthStencilImage,
		DstImage:          image,
		DstLayout:         layout,
		ClearDepthStencil: value,
		Ranges:            ranges,
	})
}

func (l *List) ResetQueryPool(pool QueryPool, firstQuery, queryCount int) {
	l.commands = append(l.commands, Command{
		Kind:       KindResetQueryPool,
		QueryPool:  pool,
		Query:      firstQuery,
		QueryCount: queryCount,
	})
}

func (l *List) BeginQuery(pool QueryPool, query int) {
	l.commands = append(l.commands, Command{Kind: KindBeginQuery, QueryPool: pool, Query: query})
}

func (l *List) EndQuery(pool QueryPool, query int) {
	l.commands = append(l.commands, Command{Kind: KindEndQuery, QueryPool: pool, Query: query})
}

func (l *List) WriteTimestamp(stage core1_0.PipelineStageFlags, pool QueryPool, query int) {
	l.commands = append(l.commands, Command{
		Kind:      KindWriteTimestamp,
		Stage:     stage,
		QueryPool: pool,
		Query:     query,
	})
}
