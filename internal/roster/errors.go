package roster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLabelCount 内置的适应度模型只支持 2 组或 4 组
	ErrInvalidLabelCount = errors.New("分组数量只能是 2 或 4")
	ErrGenomeLength      = errors.New("分组序列长度与绑定组数量不一致")
	ErrLabelOutOfRange   = errors.New("分组标签超出范围")
	ErrUnknownUnit       = errors.New("学生不存在")
	ErrUnknownBucket     = errors.New("班级不存在")
)

// EmptyBucketError 表示某个班级没有任何学生，此时无法计算比例
type EmptyBucketError struct {
	Key BucketKey
}

func (e *EmptyBucketError) Error() string {
	return fmt.Sprintf("班级 %s 没有任何学生", e.Key)
}
