package renderer

import (
	"fmt"

	"github.com/spaghettifunk/patina/engine/core"
	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

/**
 * @brief The backend's compiled representation of a portable vertex
 * declaration. Opaque to the asset pipeline; only the backend looks inside.
 */
type NativeVertexFormat interface {
	Declaration() *metadata.PortableVertexDeclaration
}

/**
 * @brief The narrow render-backend surface the asset pipeline consumes.
 * Real GPU backends live out of tree; the pipeline only needs portable
 * vertex declarations compiled into native formats.
 */
type RendererBackend interface {
	Initialize(appName string) error
	Shutdown() error
	CreateNativeVertexFormat(decl *metadata.PortableVertexDeclaration) (NativeVertexFormat, error)
}

type nullVertexFormat struct {
	decl metadata.PortableVertexDeclaration
}

func (f *nullVertexFormat) Declaration() *metadata.PortableVertexDeclaration {
	return &f.decl
}

/**
 * @brief A backend that compiles nothing. Used by the demo host and tests;
 * it validates declarations and hands back an inert format handle.
 */
type NullBackend struct {
	FormatsCreated int
}

func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (b *NullBackend) Initialize(appName string) error {
	core.LogInfo("null renderer backend initialized for '%s'", appName)
	return nil
}

func (b *NullBackend) Shutdown() error {
	return nil
}

func (b *NullBackend) CreateNativeVertexFormat(decl *metadata.PortableVertexDeclaration) (NativeVertexFormat, error) {
	if decl == nil {
		err := fmt.Errorf("create_native_vertex_format requires a declaration")
		core.LogError(err.Error())
		return nil, err
	}
	if !decl.Position.Enable {
		err := fmt.Errorf("create_native_vertex_format: declaration has no position attribute")
		core.LogError(err.Error())
		return nil, err
	}
	b.FormatsCreated++
	// Copy so later edits to the declaration cannot alias the handle.
	return &nullVertexFormat{decl: *decl}, nil
}
