package core

import "sort"

// ContentGrid is a dense voxel grid. Cell values are 0 for empty space
// or a 1-based index into Kinds identifying the block type placed there.
type ContentGrid struct {
	X, Y, Z int
	Cells   []int
	Kinds   []string
}

// NewContentGrid allocates an empty grid with the given dimensions and
// block alphabet.
func NewContentGrid(x, y, z int, kinds []string) *ContentGrid {
	return &ContentGrid{
		X:     x,
		Y:     y,
		Z:     z,
		Cells: make([]int, x*y*z),
		Kinds: kinds,
	}
}

func (g *ContentGrid) index(x, y, z int) int {
	return x + g.X*(y+g.Y*z)
}

// At returns the cell value at (x, y, z); 0 means empty.
func (g *ContentGrid) At(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= g.X || y >= g.Y || z >= g.Z {
		return 0
	}
	return g.Cells[g.index(x, y, z)]
}

// Set places block kind v (1-based index into Kinds) at (x, y, z).
func (g *ContentGrid) Set(x, y, z, v int) {
	g.Cells[g.index(x, y, z)] = v
}

// KindAt returns the block type name at (x, y, z), or "" for empty cells.
func (g *ContentGrid) KindAt(x, y, z int) string {
	v := g.At(x, y, z)
	if v == 0 || v > len(g.Kinds) {
		return ""
	}
	return g.Kinds[v-1]
}

// OccupiedCount returns the number of non-empty voxels.
func (g *ContentGrid) OccupiedCount() int {
	n := 0
	for _, v := range g.Cells {
		if v != 0 {
			n++
		}
	}
	return n
}

// CountKind returns how many voxels hold the named block type.
func (g *ContentGrid) CountKind(kind string) int {
	idx := 0
	for i, k := range g.Kinds {
		if k == kind {
			idx = i + 1
			break
		}
	}
	if idx == 0 {
		return 0
	}
	n := 0
	for _, v := range g.Cells {
		if v == idx {
			n++
		}
	}
	return n
}

// BoundingBox returns the occupied extent along each spatial axis.
// Empty grids report zero extents.
func (g *ContentGrid) BoundingBox() (dx, dy, dz int) {
	minX, minY, minZ := g.X, g.Y, g.Z
	maxX, maxY, maxZ := -1, -1, -1
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				if g.Cells[g.index(x, y, z)] == 0 {
					continue
				}
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if z < minZ {
					minZ = z
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
				if z > maxZ {
					maxZ = z
				}
			}
		}
	}
	if maxX < 0 {
		return 0, 0, 0
	}
	return maxX - minX + 1, maxY - minY + 1, maxZ - minZ + 1
}

// SortedAxes returns the bounding-box extents ordered largest first.
func (g *ContentGrid) SortedAxes() [3]int {
	dx, dy, dz := g.BoundingBox()
	axes := []int{dx, dy, dz}
	sort.Sort(sort.Reverse(sort.IntSlice(axes)))
	return [3]int{axes[0], axes[1], axes[2]}
}

// Symmetry returns the best mirror-symmetry score across the three
// axes: the fraction of occupied voxels whose mirror image, reflected
// about the occupied bounding box, is also occupied. In [0, 1]; empty
// grids score 0.
func (g *ContentGrid) Symmetry() float64 {
	total := g.OccupiedCount()
	if total == 0 {
		return 0
	}

	minX, minY, minZ := g.X, g.Y, g.Z
	maxX, maxY, maxZ := 0, 0, 0
	for z := 0; z < g.Z; z++ {
		for y := 0; y < g.Y; y++ {
			for x := 0; x < g.X; x++ {
				if g.Cells[g.index(x, y, z)] == 0 {
					continue
				}
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
				minZ, maxZ = min(minZ, z), max(maxZ, z)
			}
		}
	}

	best := 0.0
	for axis := 0; axis < 3; axis++ {
		matched := 0
		for z := minZ; z <= maxZ; z++ {
			for y := minY; y <= maxY; y++ {
				for x := minX; x <= maxX; x++ {
					if g.Cells[g.index(x, y, z)] == 0 {
						continue
					}
					mx, my, mz := x, y, z
					switch axis {
					case 0:
						mx = minX + maxX - x
					case 1:
						my = minY + maxY - y
					case 2:
						mz = minZ + maxZ - z
					}
					if g.Cells[g.index(mx, my, mz)] != 0 {
						matched++
					}
				}
			}
		}
		score := float64(matched) / float64(total)
		if score > best {
			best = score
		}
	}
	return best
}
