package render2d

// ResolveSlot returns the 1-based sampler slot for tex in the current
// bracket, adding it to the table if needed. It returns 0 for the null
// texture or when the batch is not begun.
//
// Slots are only stable until the next End; a texture may get a different
// slot in the following bracket.
func (b *QuadBatch) ResolveSlot(tex Texture) int {
	if !tex.Valid() || !b.active {
		return 0
	}
	slot, ok := b.resolve(tex.ID)
	if !ok {
		return 0
	}
	return int(slot)
}

// resolve finds or adds id in the texture table. A full table flushes the
// batch first, after which id takes slot 1.
func (b *QuadBatch) resolve(id uint32) (float32, bool) {
	for i := 0; i < b.texCount; i++ {
		if b.textures[i] == id {
			return float32(i + 1), true
		}
	}

	if b.texCount >= b.maxTextures {
		b.stats.TextureFlushes++
		if !b.flush("textures") {
			return 0, false
		}
	}

	b.textures[b.texCount] = id
	b.texCount++
	return float32(b.texCount), true
}

// Textures returns the texture IDs bound in the current bracket in slot order.
func (b *QuadBatch) Textures() []uint32 {
	out := make([]uint32, b.texCount)
	copy(out, b.textures[:b.texCount])
	return out
}
