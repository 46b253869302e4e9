package order

import "github.com/bwmarrin/snowflake"

var idNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic("snowflake node init: " + err.Error())
	}
	idNode = node
}

// NewID 生成带前缀的雪花 ID。
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "ord"
	}
	return prefix + "-" + idNode.Generate().String()
}
