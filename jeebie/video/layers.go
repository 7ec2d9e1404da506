package video

// LayerFramebuffer represents a single rendering layer's framebuffer
type LayerFramebuffer struct {
	Buffer []uint32 // RGBA pixels, same format as main framebuffer
	Width  int
	Height int
}

// RenderLayers contains separate framebuffers for each rendering layer
type RenderLayers struct {
	Background *LayerFramebuffer // 256x256 full tilemap
	Window     *LayerFramebuffer // 256x256 full tilemap
	Sprites    *LayerFramebuffer // 160x144 sprite layer
	Enabled    bool              // Whether layer rendering is active
}

// NewRenderLayers creates a new set of render layer framebuffers
func NewRenderLayers() *RenderLayers {
	return &RenderLayers{
		Background: &LayerFramebuffer{
			Buffer: make([]uint32, 256*256),
			Width:  256,
			Height: 256,
		},
		Window: &LayerFramebuffer{
			Buffer: make([]uint32, 256*256),
			Width:  256,
			Height: 256,
		},
		Sprites: &LayerFramebuffer{
			Buffer: make([]uint32, 160*144),
			Width:  160,
			Height: 144,
		},
		Enabled: false,
	}
}

// Clear blanks all layer framebuffers to transparent. A no-op when layer
// rendering isn't enabled, so debug tooling can call it unconditionally
// every frame without checking Enabled itself.
func (r *RenderLayers) Clear() {
	if !r.Enabled {
		return
	}

	for _, layer := range []*LayerFramebuffer{r.Background, r.Window, r.Sprites} {
		for i := range layer.Buffer {
			layer.Buffer[i] = 0
		}
	}
}
