package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderASCIILinear(t *testing.T) {
	output := RenderASCII(buildSource(t, `void f(){ System.out.println("hi"); }`))
	assert.NotEmpty(t, output)

	// Verify box-drawing characters.
	assert.Contains(t, output, "┌")
	assert.Contains(t, output, "┐")
	assert.Contains(t, output, "└")
	assert.Contains(t, output, "┘")
	assert.Contains(t, output, "│")

	assert.Contains(t, output, "│ Start │")
	assert.Contains(t, output, "│ N0: Def f │")
	assert.Contains(t, output, "│ N1: /System.out.println(...)/ │")
	assert.Contains(t, output, "└──▶ End")
}

func TestRenderASCIIBranches(t *testing.T) {
	output := RenderASCII(buildSource(t, `void g(){ if (a[0]) { x = 1; } }`))

	assert.Contains(t, output, "N1: <a[0]?>")
	assert.Contains(t, output, "└─True─▶ N2")
	assert.Contains(t, output, "└─False─▶ N4")
	assert.Contains(t, output, "N5: ( )")
}

func TestRenderASCIIBoxWidthCountsRunes(t *testing.T) {
	box := makeBox(&Node{ID: "N0", Label: "héllo"})
	assert.Len(t, box.lines, 3)
	assert.Equal(t, len([]rune(box.lines[0])), len([]rune(box.lines[1])))
	assert.True(t, strings.HasPrefix(box.lines[1], "│ N0: héllo"))
}
