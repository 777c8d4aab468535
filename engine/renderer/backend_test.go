package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/patina/engine/renderer/metadata"
)

func positionDeclaration() metadata.PortableVertexDeclaration {
	decl := metadata.PortableVertexDeclaration{Stride: 12}
	decl.Position = metadata.AttributeFormat{Format: metadata.ComponentFloat, Components: 3, Enable: true}
	return decl
}

func TestNullBackendCreatesFormats(t *testing.T) {
	backend := NewNullBackend()
	require.NoError(t, backend.Initialize("test"))

	decl := positionDeclaration()
	format, err := backend.CreateNativeVertexFormat(&decl)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.FormatsCreated)
	assert.Equal(t, decl, *format.Declaration())

	_, err = backend.CreateNativeVertexFormat(&decl)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.FormatsCreated)

	require.NoError(t, backend.Shutdown())
}

func TestNullBackendCopiesDeclaration(t *testing.T) {
	backend := NewNullBackend()
	decl := positionDeclaration()
	format, err := backend.CreateNativeVertexFormat(&decl)
	require.NoError(t, err)

	decl.Stride = 99
	decl.TexCoords[0].Enable = true
	assert.Equal(t, uint32(12), format.Declaration().Stride)
	assert.False(t, format.Declaration().TexCoords[0].Enable)
}

func TestNullBackendRejectsBadDeclarations(t *testing.T) {
	backend := NewNullBackend()

	_, err := backend.CreateNativeVertexFormat(nil)
	assert.Error(t, err)

	noPosition := metadata.PortableVertexDeclaration{Stride: 8}
	noPosition.TexCoords[0] = metadata.AttributeFormat{Format: metadata.ComponentFloat, Components: 2, Enable: true}
	_, err = backend.CreateNativeVertexFormat(&noPosition)
	assert.Error(t, err)

	assert.Equal(t, 0, backend.FormatsCreated)
}
