package tree

import (
	"fmt"
	"math/bits"
)

// SegmentTree 是一棵用于加权随机抽样的求和线段树。
// 支持单点更新、前缀和查询，以及按累计权重定位叶子。
type SegmentTree struct {
	tree []float64 // 大小为 2 * alignedSize，下标1为根
	size int
	// alignedSize 是对齐到2的幂次后的叶子数
	alignedSize int
}

// NewSegmentTree 创建一个指定大小、权重全为0的线段树。
func NewSegmentTree(size int) (*SegmentTree, error) {
	if size <= 0 {
		return nil, fmt.Errorf("树的大小必须为正数，收到 %d", size)
	}
	alignedSize := 1 << bits.Len(uint(size-1))
	return &SegmentTree{
		tree:        make([]float64, 2*alignedSize),
		size:        size,
		alignedSize: alignedSize,
	}, nil
}

// Len 返回叶子数量
func (st *SegmentTree) Len() int {
	return st.size
}

// Rebuild 用给定的权重数组整体重建树，长度必须与树的大小一致。
func (st *SegmentTree) Rebuild(weights []float64) error {
	if len(weights) != st.size {
		return fmt.Errorf("权重数组大小 (%d) 与树的大小 (%d) 不匹配", len(weights), st.size)
	}
	for i := range st.tree {
		st.tree[i] = 0
	}
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("索引 %d 的权重不能为负: %f", i, w)
		}
		st.tree[st.alignedSize+i] = w
	}
	for i := st.alignedSize - 1; i > 0; i-- {
		st.tree[i] = st.tree[2*i] + st.tree[2*i+1]
	}
	return nil
}

// Update 更新指定索引的权重，并自底向上修正父节点。
func (st *SegmentTree) Update(index int, weight float64) error {
	if err := st.checkIndex(index); err != nil {
		return err
	}
	if weight < 0 {
		return fmt.Errorf("索引 %d 的权重不能为负: %f", index, weight)
	}

	pos := st.alignedSize + index
	st.tree[pos] = weight
	for pos > 1 {
		pos /= 2
		st.tree[pos] = st.tree[2*pos] + st.tree[2*pos+1]
	}
	return nil
}

// Query 返回指定索引的权重。
func (st *SegmentTree) Query(index int) (float64, error) {
	if err := st.checkIndex(index); err != nil {
		return 0, err
	}
	return st.tree[st.alignedSize+index], nil
}

// PrefixSum 返回 [0, index] 区间的权重和。
func (st *SegmentTree) PrefixSum(index int) (float64, error) {
	if err := st.checkIndex(index); err != nil {
		return 0, err
	}

	sum := 0.0
	l, r := st.alignedSize, st.alignedSize+index+1
	for l < r {
		if l&1 == 1 {
			sum += st.tree[l]
			l++
		}
		if r&1 == 1 {
			r--
			sum += st.tree[r]
		}
		l /= 2
		r /= 2
	}
	return sum, nil
}

// Find 返回第一个前缀和 >= value 且权重为正的叶子索引。
// value 取 (0, TotalSum] 时结果总是权重为正的叶子。
func (st *SegmentTree) Find(value float64) (int, error) {
	total := st.tree[1]
	if total <= 0 {
		return -1, fmt.Errorf("总权重为0，无法抽样")
	}
	if value < 0 || value > total {
		return -1, fmt.Errorf("查找值 %f 超出总权重范围 [0, %f]", value, total)
	}

	pos := 1
	for pos < st.alignedSize {
		left := 2 * pos
		// 左子树为空时必须进入右子树，避免 value == 0 时落到零权重叶子
		if st.tree[left] > 0 && value <= st.tree[left] {
			pos = left
		} else {
			value -= st.tree[left]
			pos = left + 1
		}
	}
	index := pos - st.alignedSize
	if index >= st.size {
		// 浮点误差可能把value推到对齐补位区，退回到最后一个正权重叶子
		for i := st.size - 1; i >= 0; i-- {
			if st.tree[st.alignedSize+i] > 0 {
				return i, nil
			}
		}
		return -1, fmt.Errorf("找不到正权重的叶子")
	}
	return index, nil
}

// TotalSum 返回所有权重之和。
func (st *SegmentTree) TotalSum() float64 {
	return st.tree[1]
}

func (st *SegmentTree) checkIndex(index int) error {
	if index < 0 || index >= st.size {
		return fmt.Errorf("索引 %d 超出范围 [0, %d)", index, st.size)
	}
	return nil
}
