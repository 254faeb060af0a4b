package game

import "math/rand"

// BagRule 广播给客户端的随机规则名
const BagRule = "7bag"

// Bag 7-bag 随机器：每 7 次抽取恰好包含全部七种方块各一次
type Bag struct {
	rng  *rand.Rand
	perm []Kind
}

// NewBag 以固定种子创建随机器，相同种子产出相同序列
func NewBag(seed int64) *Bag {
	return &Bag{rng: rand.New(rand.NewSource(seed))}
}

// Next 抽取下一个方块；当前袋子耗尽时重新洗牌
func (b *Bag) Next() Kind {
	if len(b.perm) == 0 {
		b.refill()
	}
	k := b.perm[0]
	b.perm = b.perm[1:]
	return k
}

func (b *Bag) refill() {
	perm := make([]Kind, len(Kinds))
	copy(perm, Kinds[:])
	b.rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	b.perm = perm
}
