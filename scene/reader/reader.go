package reader

import (
	"github.com/helios-rt/helios/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read a scene definition from a file.
	Read(sceneFile string) (*scene.Scene, error)
}

// Read scene from file.
func ReadScene(filename string) (*scene.Scene, error) {
	return newTextSceneReader().Read(filename)
}
