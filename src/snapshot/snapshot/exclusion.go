package snapshot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

func WithRedis(redisType string, redisPass string) redis.Option {
	return func(p *redis.Redis) {
		p.Type = redisType
		p.Pass = redisPass
	}
}

// ExclusionList unions a static address list from config with the members of
// a redis set maintained by ops. Contract addresses such as the pool pair and
// the safe engine itself go in the static list.
type ExclusionList struct {
	redisConn *redis.Redis
	static    []string
}

func NewExclusionList(redisConn *redis.Redis, static []string) *ExclusionList {
	return &ExclusionList{
		redisConn: redisConn,
		static:    static,
	}
}

func (e *ExclusionList) GetExcludedAddresses() (map[common.Address]bool, error) {
	excluded := make(map[common.Address]bool, len(e.static))
	for _, addr := range e.static {
		excluded[common.HexToAddress(addr)] = true
	}
	if e.redisConn != nil {
		members, err := e.redisConn.Smembers(utils.ExclusionSetKey)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			excluded[common.HexToAddress(member)] = true
		}
	}
	return excluded, nil
}
