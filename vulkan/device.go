package vulkan

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/helpers/buffer"
	"github.com/vkngwrapper/arsenal/helpers/garbage"
	internalvk "github.com/vkngwrapper/arsenal/helpers/internal/vulkan"
	"github.com/vkngwrapper/arsenal/helpers/serial"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/extensions/v2/ext_memory_priority"
	"github.com/vkngwrapper/extensions/v2/khr_dedicated_allocation"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific device behaviors to activate or deactivate
type CreateFlags int32

var deviceCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	deviceCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return deviceCreateFlagsMapping.FlagsToString(f)
}

const (
	// DeviceCreateExternallySynchronized indicates that the serial counter and garbage collector owned by
	// this device will only be used from one goroutine at a time, so internal mutexes are not used.
	DeviceCreateExternallySynchronized CreateFlags = 1 << iota
	// DeviceCreateMemoryConstrained clamps the size of dynamic buffers created against this device. It
	// is intended for drivers such as the mock ICD that cannot back large allocations.
	DeviceCreateMemoryConstrained
)

func init() {
	DeviceCreateExternallySynchronized.Register("DeviceCreateExternallySynchronized")
	DeviceCreateMemoryConstrained.Register("DeviceCreateMemoryConstrained")
}

// CreateOptions contains optional settings when creating a Device
type CreateOptions struct {
	// Flags indicates specific device behaviors to activate or deactivate
	Flags CreateFlags

	// VulkanCallbacks is an optional set of callbacks that will be passed to Vulkan for every object
	// created by this device
	VulkanCallbacks *driver.AllocationCallbacks

	// Priority is attached to every backing allocation when ext_memory_priority is active. It should
	// be between 0 and 1; zero selects the default of 0.5.
	Priority float32
}

const defaultPriority float32 = 0.5

// Device is the vkngwrapper implementation of the device that dynamic buffers, pools and images are
// allocated against. It owns the serial counter used to stamp submitted work and the garbage collector
// that destroys released objects once their serial has retired.
type Device struct {
	*serial.Counter
	*garbage.Collector

	logger          *slog.Logger
	device          core1_0.Device
	callbacks       *driver.AllocationCallbacks
	createFlags     CreateFlags
	priority        float32
	allocationCount uint32

	deviceProperties *core1_0.PhysicalDeviceProperties
	memoryTypes      *internalvk.MemoryTypes
	extensionData    *internalvk.ExtensionData
}

var _ buffer.Device = &Device{}

// New creates a new Device
//
// physicalDevice - The PhysicalDevice that owns the provided Device
//
// device - The Device that objects will be created from
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, options CreateOptions) (*Device, error) {
	threadSafe := options.Flags&DeviceCreateExternallySynchronized == 0

	deviceProperties, err := physicalDevice.Properties()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read physical device properties")
	}
	if deviceProperties.Limits == nil {
		return nil, errors.New("physical device properties did not include limits")
	}

	priority := options.Priority
	if priority == 0 {
		priority = defaultPriority
	} else if priority < 0 || priority > 1 {
		return nil, errors.Newf("memory priority must be between 0 and 1, but was %f", priority)
	}

	return &Device{
		Counter:   serial.NewCounter(threadSafe),
		Collector: garbage.NewCollector(logger, threadSafe),

		logger:      logger,
		device:      device,
		callbacks:   options.VulkanCallbacks,
		createFlags: options.Flags,
		priority:    priority,

		deviceProperties: deviceProperties,
		memoryTypes:      internalvk.NewMemoryTypes(physicalDevice.MemoryProperties()),
		extensionData:    internalvk.NewExtensionData(device),
	}, nil
}

func (d *Device) VulkanDevice() core1_0.Device {
	return d.device
}

func (d *Device) NonCoherentAtomSize() int {
	return d.deviceProperties.Limits.NonCoherentAtomSize
}

func (d *Device) MemoryConstrained() bool {
	return d.createFlags&DeviceCreateMemoryConstrained != 0
}

// AllocationCount is the number of live device memory objects created by this device
func (d *Device) AllocationCount() int {
	return int(atomic.LoadUint32(&d.allocationCount))
}

// Retire closes out the current serial, marks everything submitted so far as complete, and destroys
// the garbage whose serial has retired. It is meant for callers that have just waited for the device
// to go idle.
func (d *Device) Retire() int {
	d.Submit()
	d.CompleteAll()
	return d.Cleanup(d.Counter)
}

// Destroy destroys every object still held by the garbage collector, regardless of serial. The
// caller must guarantee that the device is idle.
func (d *Device) Destroy() {
	d.logger.Debug("Device::Destroy")

	d.CompleteAll()
	d.DestroyAll()
}

func (d *Device) AllocateBuffer(size int, usage core1_0.BufferUsageFlags, requiredProperties core1_0.MemoryPropertyFlags) (mem buffer.Memory, res common.VkResult, err error) {
	d.logger.Debug("Device::AllocateBuffer")

	if size <= 0 {
		return nil, core1_0.VKErrorUnknown, errors.Newf("attempted to allocate a buffer of size %d", size)
	}

	vulkanBuffer, res, err := d.device.CreateBuffer(d.callbacks, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, res, err
	}
	defer func() {
		if err != nil {
			vulkanBuffer.Destroy(d.callbacks)
		}
	}()

	memReqs := vulkanBuffer.MemoryRequirements()

	hostVisible := requiredProperties&core1_0.MemoryPropertyHostVisible != 0
	required, preferred, notPreferred := internalvk.BackingPreferences(hostVisible)
	memoryTypeIndex, res, err := d.memoryTypes.FindMemoryTypeIndex(
		memReqs.MemoryTypeBits,
		required|requiredProperties,
		preferred,
		notPreferred,
	)
	if err != nil {
		return nil, res, errors.Wrapf(err, "no memory type supports properties %s", requiredProperties.String())
	}

	allocInfo := core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryTypeIndex,
	}

	if d.extensionData.UseMemoryPriority {
		priorityInfo := ext_memory_priority.MemoryPriorityAllocateInfo{
			Priority: d.priority,
		}
		priorityInfo.Next = allocInfo.Next
		allocInfo.Next = priorityInfo
	}

	if d.extensionData.DedicatedAllocations {
		dedicatedAllocInfo := khr_dedicated_allocation.MemoryDedicatedAllocateInfo{
			Buffer: vulkanBuffer,
		}
		dedicatedAllocInfo.Next = allocInfo.Next
		allocInfo.Next = dedicatedAllocInfo
	}

	vulkanMemory, res, err := d.allocateVulkanMemory(allocInfo)
	if err != nil {
		return nil, res, err
	}
	defer func() {
		if err != nil {
			d.freeVulkanMemory(vulkanMemory)
		}
	}()

	res, err = vulkanBuffer.BindBufferMemory(vulkanMemory, 0)
	if err != nil {
		return nil, res, errors.Wrap(err, "failed to bind buffer memory")
	}

	d.logger.LogAttrs(context.Background(), slog.LevelDebug, "allocated backing buffer",
		slog.Int("size", size),
		slog.Int("memoryType", memoryTypeIndex),
	)

	return &Memory{
		device:     d,
		buffer:     vulkanBuffer,
		memory:     vulkanMemory,
		size:       size,
		properties: d.memoryTypes.MemoryTypeProperties(memoryTypeIndex).PropertyFlags,
	}, res, nil
}

func (d *Device) allocateVulkanMemory(allocateInfo core1_0.MemoryAllocateInfo) (mem core1_0.DeviceMemory, res common.VkResult, err error) {
	newCount := atomic.AddUint32(&d.allocationCount, 1)
	defer func() {
		// If we failed out, roll back the increment
		if err != nil {
			atomic.AddUint32(&d.allocationCount, ^uint32(0))
		}
	}()

	if int(newCount) > d.deviceProperties.Limits.MaxMemoryAllocationCount {
		return nil, core1_0.VKErrorTooManyObjects, core1_0.VKErrorTooManyObjects.ToError()
	}

	return d.device.AllocateMemory(d.callbacks, allocateInfo)
}

func (d *Device) freeVulkanMemory(memory core1_0.DeviceMemory) {
	memory.Free(d.callbacks)
	// Decrement
	atomic.AddUint32(&d.allocationCount, ^uint32(0))
}
