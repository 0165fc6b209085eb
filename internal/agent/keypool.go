package agent

import (
	"fmt"
	"sync/atomic"
)

// KeyPool 原子轮询的API密钥池
// 多个并发请求各自拿到不同密钥，分摊各密钥的限流配额
type KeyPool struct {
	keys   []string
	cursor atomic.Uint64
}

// NewKeyPool 创建密钥池，至少需要一个密钥
func NewKeyPool(keys []string) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("密钥池不能为空")
	}
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyPool{keys: cp}, nil
}

// Next 返回下一个密钥，按取用次数轮询，线程安全
func (p *KeyPool) Next() string {
	idx := p.cursor.Add(1) - 1
	return p.keys[idx%uint64(len(p.keys))]
}

// Size 池中密钥数量，决定单次调用的最大重试次数
func (p *KeyPool) Size() int {
	return len(p.keys)
}
