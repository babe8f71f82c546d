package image

import (
	"fmt"

	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/command"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
)

// EntireLevel is used as an Index's LayerCount to refer to every layer of the level
const EntireLevel = -1

// Index addresses one level of an image and a range of its layers
type Index struct {
	Level     int
	BaseLayer int
	// LayerCount is the number of layers addressed. Zero is treated as one, and EntireLevel
	// refers to every layer.
	LayerCount int
	// Array is set for array images. Uploads to array images select their base layer with the
	// z component of their offset.
	Array bool
}

func (i Index) layers(imageLayerCount int) int {
	switch {
	case i.LayerCount == EntireLevel:
		return imageLayerCount
	case i.LayerCount <= 0:
		return 1
	}
	return i.LayerCount
}

type UpdateKind int

const (
	UpdateClear UpdateKind = iota
	UpdateBuffer
	UpdateImage
)

var updateKindMapping = map[UpdateKind]string{
	UpdateClear:  "UpdateClear",
	UpdateBuffer: "UpdateBuffer",
	UpdateImage:  "UpdateImage",
}

func (k UpdateKind) String() string {
	str, ok := updateKindMapping[k]
	if !ok {
		return fmt.Sprintf("UpdateKind(%d)", int(k))
	}
	return str
}

// Update is a pending write to an image's subresources. Only the fields relevant to Kind are
// populated.
type Update struct {
	Kind UpdateKind

	// Clear
	ClearValue command.ClearValue
	Level      int
	BaseLayer  int
	// LayerCount may be EntireLevel, which is resolved when the update is flushed
	LayerCount int

	// Buffer
	Buffer     *buffer.Helper
	BufferCopy command.BufferImageCopy

	// Image. The source image is owned by the update and is released with it.
	Image     *Helper
	ImageCopy command.ImageCopy
}

func (u *Update) dstSubresource() command.ImageSubresourceLayers {
	if u.Kind == UpdateImage {
		return u.ImageCopy.DstSubresource
	}
	return u.BufferCopy.ImageSubresource
}

// target returns the level and layers written by the update
func (u *Update) target(imageLayerCount int) (level, baseLayer, layerCount int) {
	if u.Kind == UpdateClear {
		layerCount = u.LayerCount
		if layerCount == EntireLevel {
			layerCount = imageLayerCount
		}
		return u.Level, u.BaseLayer, layerCount
	}

	dst := u.dstSubresource()
	return dst.MipLevel, dst.BaseArrayLayer, dst.LayerCount
}

func (u *Update) isUpdateToLayerLevel(layer, level int) bool {
	if u.Kind == UpdateClear {
		return u.Level == level && u.BaseLayer == layer
	}

	dst := u.dstSubresource()
	return dst.BaseArrayLayer == layer && dst.MipLevel == level
}

// release drops the resources held by the update. Staging data lives in the image's staging
// buffer, so only image sources need to be released.
func (u *Update) release(releaser garbage.Releaser) {
	if u.Kind == UpdateImage && u.Image != nil {
		u.Image.Release(releaser)
		u.Image = nil
	}
}

func (u *Update) releaseToQueue(sink garbage.Sink) {
	if u.Kind == UpdateImage && u.Image != nil {
		u.Image.ReleaseToQueue(sink)
		u.Image = nil
	}
}
