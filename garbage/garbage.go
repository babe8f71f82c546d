package garbage

import "github.com/vkngwrapper/arsenal/helpers/serial"

// Object is a native handle, or a bundle of them, that can be destroyed once the device no longer
// references it
type Object interface {
	Destroy()
}

// Func adapts a plain function to the Object interface
type Func func()

func (f Func) Destroy() {
	f()
}

// Releaser accepts objects that may still be referenced by work stamped with a serial. They will
// be destroyed after that serial retires.
type Releaser interface {
	ReleaseObjects(serial serial.Serial, objects ...Object)
}

// Sink accepts objects whose destruction is deferred to a later teardown point, such as
// device destruction
type Sink interface {
	AddGarbage(objects ...Object)
}
