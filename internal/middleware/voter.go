package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// VoterKey 是 gin.Context 中当前投票人的键
	VoterKey = "voter"

	sessionVoterID   = "voter_id"
	sessionVoterName = "voter_name"

	HeaderVoterID   = "X-Voter-Id"
	HeaderVoterName = "X-Voter-Name"
)

// Voter 是上游身份服务认定的校友身份。
type Voter struct {
	ID   string
	Name string
}

// LoadVoter 从 session 读取身份。trustHeaders 为 true 时，没有 session 的请求
// 退回网关注入的 X-Voter-* 请求头；否则忽略这些头。
func LoadVoter(trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		voter := Voter{}

		session := sessions.Default(c)
		if id, ok := session.Get(sessionVoterID).(string); ok && id != "" {
			voter.ID = id
			voter.Name, _ = session.Get(sessionVoterName).(string)
		} else if trustHeaders {
			voter.ID = strings.TrimSpace(c.GetHeader(HeaderVoterID))
			voter.Name = strings.TrimSpace(c.GetHeader(HeaderVoterName))
		}

		if voter.ID != "" {
			c.Set(VoterKey, voter)
		}
		c.Next()
	}
}

// VoterRequired 拒绝没有身份的请求。
func VoterRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentVoter(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "请先登录",
			})
			return
		}
		c.Next()
	}
}

// CurrentVoter 返回 LoadVoter 放进上下文的身份。
func CurrentVoter(c *gin.Context) (Voter, bool) {
	v, ok := c.Get(VoterKey)
	if !ok {
		return Voter{}, false
	}
	voter, ok := v.(Voter)
	return voter, ok
}
