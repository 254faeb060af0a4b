package game

// Kind 方块种类；零值 None 表示空格子
type Kind uint8

const (
	None Kind = iota
	I
	O
	T
	L
	J
	S
	Z
)

// Kinds 七种方块，7-bag 的洗牌基底
var Kinds = [...]Kind{I, O, T, L, J, S, Z}

var kindNames = [...]string{None: "", I: "I", O: "O", T: "T", L: "L", J: "J", S: "S", Z: "Z"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// ParseKind 将单字母名称解析为 Kind，未知返回 None
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if k != int(None) && name == s {
			return Kind(k)
		}
	}
	return None
}

// Cell 形状内的相对坐标（X 列，Y 行）
type Cell struct {
	X, Y int
}

// shapes 旋转表：每种方块的每个旋转状态占 4 格
var shapes = [...][][4]Cell{
	I: {
		{{0, 0}, {1, 0}, {2, 0}, {3, 0}},
		{{2, -1}, {2, 0}, {2, 1}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {3, 1}},
		{{1, -1}, {1, 0}, {1, 1}, {1, 2}},
	},
	O: {
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	},
	T: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	L: {
		{{0, 0}, {0, 1}, {0, 2}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
	},
	J: {
		{{1, 0}, {1, 1}, {1, 2}, {0, 2}},
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{0, 0}, {1, 0}, {0, 1}, {0, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
	},
	S: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 1}, {2, 1}, {0, 2}, {1, 2}},
		{{0, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	Z: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {1, 2}, {2, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {0, 2}},
	},
}

// Rotations 返回该种类的旋转状态数（O 为 1，其余为 4）
func (k Kind) Rotations() int {
	if k == None || int(k) >= len(shapes) {
		return 0
	}
	return len(shapes[k])
}

// Shape 返回指定旋转状态的相对格子
func (k Kind) Shape(rot int) [4]Cell {
	return shapes[k][rot]
}

const (
	// SpawnX 出生列偏移
	SpawnX = 3
	// SpawnY 出生行
	SpawnY = 0
)

// Piece 当前下落中的方块
type Piece struct {
	Kind Kind
	Rot  int
	X    int
	Y    int
}

// Cells 返回方块在棋盘上的绝对坐标
func (p Piece) Cells() [4]Cell {
	var out [4]Cell
	for i, c := range p.Kind.Shape(p.Rot) {
		out[i] = Cell{X: c.X + p.X, Y: c.Y + p.Y}
	}
	return out
}

// spawnPiece 以默认旋转放在出生点
func spawnPiece(k Kind) Piece {
	return Piece{Kind: k, Rot: 0, X: SpawnX, Y: SpawnY}
}
