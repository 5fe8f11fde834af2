package item

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/SlpAus/versus-arena-backend/pkg/tree"
)

// ErrNotEnoughItems 在可抽样的条目少于两个时返回
var ErrNotEnoughItems = errors.New("可用于配对的条目不足")

// WeightForCount 根据条目的对决次数计算其“冷门优先”选择权重。
func WeightForCount(count int) float64 {
	if count < 0 {
		count = 0
	}
	return 1.0 / (float64(count) + 5.0)
}

// Sampler 在内存中维护条目的抽样权重，按权重随机挑选一对条目。
// 索引在创建时固定；新导入的条目要等到服务重启后才会进入抽样。
type Sampler struct {
	mu          sync.Mutex
	idToIndex   map[string]int
	indexToID   []string
	weightsTree *tree.SegmentTree
	rng         *rand.Rand
}

// NewSampler 用条目列表初始化抽样器。rng 为 nil 时使用随机种子。
func NewSampler(items []Item, rng *rand.Rand) (*Sampler, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Sampler{
		idToIndex: make(map[string]int, len(items)),
		indexToID: make([]string, 0, len(items)),
		rng:       rng,
	}
	if len(items) == 0 {
		return s, nil
	}

	weights := make([]float64, 0, len(items))
	for _, it := range items {
		if _, dup := s.idToIndex[it.ID]; dup {
			return nil, fmt.Errorf("条目ID重复: %s", it.ID)
		}
		s.idToIndex[it.ID] = len(s.indexToID)
		s.indexToID = append(s.indexToID, it.ID)
		weights = append(weights, WeightForCount(it.ComparisonCount))
	}

	segTree, err := tree.NewSegmentTree(len(items))
	if err != nil {
		return nil, err
	}
	if err := segTree.Rebuild(weights); err != nil {
		return nil, err
	}
	s.weightsTree = segTree
	return s, nil
}

// Len 返回抽样器中的条目数
func (s *Sampler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indexToID)
}

// Observe 在条目的对决次数变化后更新其权重；未知ID被忽略
func (s *Sampler) Observe(id string, comparisonCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.idToIndex[id]
	if !ok {
		return
	}
	// 权重恒为正，Update 不会失败
	_ = s.weightsTree.Update(index, WeightForCount(comparisonCount))
}

// NextPair 按权重无放回地抽取两个不同的条目，exclude 中的条目不会被选中。
// 返回顺序即展示顺序（左、右）。
func (s *Sampler) NextPair(exclude ...string) (left, right string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.weightsTree == nil {
		return "", "", ErrNotEnoughItems
	}

	// 1. 暂时把排除项和第一个选中项的权重置零，结束后恢复
	saved := make(map[int]float64, len(exclude)+1)
	hide := func(index int) {
		if _, done := saved[index]; done {
			return
		}
		w, _ := s.weightsTree.Query(index)
		saved[index] = w
		_ = s.weightsTree.Update(index, 0)
	}
	defer func() {
		for index, w := range saved {
			_ = s.weightsTree.Update(index, w)
		}
	}()

	for _, id := range exclude {
		if index, ok := s.idToIndex[id]; ok {
			hide(index)
		}
	}

	// 2. 抽取第一个
	first, err := s.pickLocked()
	if err != nil {
		return "", "", err
	}
	hide(first)

	// 3. 抽取第二个
	second, err := s.pickLocked()
	if err != nil {
		return "", "", err
	}
	return s.indexToID[first], s.indexToID[second], nil
}

func (s *Sampler) pickLocked() (int, error) {
	total := s.weightsTree.TotalSum()
	if total <= 0 {
		return 0, ErrNotEnoughItems
	}
	index, err := s.weightsTree.Find(s.rng.Float64() * total)
	if err != nil {
		return 0, fmt.Errorf("按权重定位条目失败: %w", err)
	}
	if w, _ := s.weightsTree.Query(index); w <= 0 {
		// 浮点误差落到了被置零的叶子上，退回到线性查找
		for i := range s.indexToID {
			if w, _ := s.weightsTree.Query(i); w > 0 {
				return i, nil
			}
		}
		return 0, ErrNotEnoughItems
	}
	return index, nil
}
