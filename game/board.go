package game

const (
	// Rows 棋盘行数
	Rows = 20
	// Cols 棋盘列数
	Cols = 10
)

// Board 固定 20x10 网格，行 0 在最上方
type Board [Rows][Cols]Kind

// Collides 任一格子越界或与已占格重叠即视为碰撞
func (b *Board) Collides(p Piece) bool {
	for _, c := range p.Cells() {
		if c.X < 0 || c.X >= Cols || c.Y < 0 || c.Y >= Rows {
			return true
		}
		if b[c.Y][c.X] != None {
			return true
		}
	}
	return false
}

// Stamp 将方块写入棋盘
func (b *Board) Stamp(p Piece) {
	for _, c := range p.Cells() {
		b[c.Y][c.X] = p.Kind
	}
}

// ClearFullRows 移除所有满行，剩余行下移，顶部补空行；返回消除行数
func (b *Board) ClearFullRows() int {
	var kept [Rows][Cols]Kind
	dst := Rows - 1
	for y := Rows - 1; y >= 0; y-- {
		if b.rowFull(y) {
			continue
		}
		kept[dst] = b[y]
		dst--
	}
	cleared := dst + 1
	*b = kept
	return cleared
}

func (b *Board) rowFull(y int) bool {
	for x := 0; x < Cols; x++ {
		if b[y][x] == None {
			return false
		}
	}
	return true
}

// TopOccupied 顶行存在方块（top-out 判定）
func (b *Board) TopOccupied() bool {
	for x := 0; x < Cols; x++ {
		if b[0][x] != None {
			return true
		}
	}
	return false
}

// Strings 以字符串网格导出，空格为 ""
func (b *Board) Strings() [][]string {
	out := make([][]string, Rows)
	for y := range b {
		row := make([]string, Cols)
		for x, k := range b[y] {
			row[x] = k.String()
		}
		out[y] = row
	}
	return out
}
