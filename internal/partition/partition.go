package partition

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

// Partition 是一个分组方案，第 i 个基因是第 i 个绑定组的标签
type Partition []roster.Label

// Random 生成长度为 length、每个基因在 [0, k) 中均匀取值的分组方案
func Random(rng *rand.Rand, length, k int) Partition {
	p := make(Partition, length)
	for i := range p {
		p[i] = roster.Label(rng.Intn(k))
	}
	return p
}

func (p Partition) Clone() Partition {
	return slices.Clone(p)
}

func (p Partition) Equal(o Partition) bool {
	return slices.Equal(p, o)
}

// Letters 把分组方案转换为 "ABBA..." 形式的字符串
func (p Partition) Letters() string {
	var sb strings.Builder
	sb.Grow(len(p))
	for _, l := range p {
		sb.WriteString(l.String())
	}
	return sb.String()
}

// Parse 是 Letters 的逆操作
func Parse(s string, k int) (Partition, error) {
	p := make(Partition, 0, len(s))
	for i, r := range s {
		l, err := roster.ParseLabel(string(r))
		if err != nil {
			return nil, fmt.Errorf("第 %d 个字符: %w", i, err)
		}
		if int(l) >= k {
			return nil, fmt.Errorf("第 %d 个字符 %c: %w", i, r, roster.ErrLabelOutOfRange)
		}
		p = append(p, l)
	}
	return p, nil
}

// Codec 记录分组方案的长度与标签数量，用于生成和校验分组方案
type Codec struct {
	length int
	k      int
}

func NewCodec(length, k int) (*Codec, error) {
	if k != 2 && k != 4 {
		return nil, fmt.Errorf("%w: %d", roster.ErrInvalidLabelCount, k)
	}
	if length < 0 {
		return nil, fmt.Errorf("分组序列长度不能为负数: %d", length)
	}
	return &Codec{length: length, k: k}, nil
}

// CodecFor 返回与模型的绑定组数量和分组数量一致的 Codec
func CodecFor(m *roster.Model) (*Codec, error) {
	return NewCodec(m.CohortCount(), m.LabelCount())
}

func (c *Codec) Length() int {
	return c.length
}

func (c *Codec) LabelCount() int {
	return c.k
}

func (c *Codec) Random(rng *rand.Rand) Partition {
	return Random(rng, c.length, c.k)
}

// Check 校验分组方案的长度以及每个基因的取值
func (c *Codec) Check(p Partition) error {
	if len(p) != c.length {
		return fmt.Errorf("%w: 需要 %d，实际为 %d", roster.ErrGenomeLength, c.length, len(p))
	}
	for i, l := range p {
		if int(l) >= c.k {
			return fmt.Errorf("%w: 第 %d 个基因为 %d", roster.ErrLabelOutOfRange, i, l)
		}
	}
	return nil
}
