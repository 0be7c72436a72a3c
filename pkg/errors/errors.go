package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized  = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
)

// 联系人核验错误（verify-status 接口）。
// 四类必须对外可区分：请求有误 / 来晚了 / 链接过期 / 并发竞争失败。
var (
	TokenInvalid       = Definition{Code: "TOKEN_INVALID", Message: "Verification token invalid"}
	TokenAlreadyUsed   = Definition{Code: "TOKEN_ALREADY_USED", Message: "Verification token already used"}
	TokenExpired       = Definition{Code: "TOKEN_EXPIRED", Message: "Verification token expired"}
	TokenConcurrentUse = Definition{Code: "TOKEN_CONCURRENT_USE", Message: "Concurrent usage detected"}
	DecisionInvalid    = Definition{Code: "DECISION_INVALID", Message: "Decision must be confirm or deny"}
)

// 打卡模块错误。
var (
	CheckinNotFound        = Definition{Code: "CHECKIN_NOT_FOUND", Message: "Check-in record not found"}
	CheckinIntervalInvalid = Definition{Code: "CHECKIN_INTERVAL_INVALID", Message: "Check-in interval not allowed for plan"}
)

// 留言模块错误。
var (
	MessageNotFound         = Definition{Code: "MESSAGE_NOT_FOUND", Message: "Message not found"}
	MessageNotDraft         = Definition{Code: "MESSAGE_NOT_DRAFT", Message: "Message is not a draft"}
	MessageRecipientMissing = Definition{Code: "MESSAGE_RECIPIENT_MISSING", Message: "Message has no recipient address"}
)

// 联系人模块错误。
var (
	ContactNotFound     = Definition{Code: "CONTACT_NOT_FOUND", Message: "Trusted contact not found"}
	ContactLimitReached = Definition{Code: "CONTACT_LIMIT_REACHED", Message: "Trusted contact limit reached"}
	ContactEmailInvalid = Definition{Code: "CONTACT_EMAIL_INVALID", Message: "Trusted contact email invalid"}
)

// 内部任务接口错误。
var (
	InternalTokenInvalid = Definition{Code: "INTERNAL_TOKEN_INVALID", Message: "Internal job token invalid"}
)

// 限流错误。
var (
	RateLimited = Definition{Code: "RATE_LIMITED", Message: "Too many requests"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:           Unauthorized,
	InvalidUserID.Code:          InvalidUserID,
	TokenInvalid.Code:           TokenInvalid,
	TokenAlreadyUsed.Code:       TokenAlreadyUsed,
	TokenExpired.Code:           TokenExpired,
	TokenConcurrentUse.Code:     TokenConcurrentUse,
	DecisionInvalid.Code:        DecisionInvalid,
	CheckinNotFound.Code:        CheckinNotFound,
	CheckinIntervalInvalid.Code: CheckinIntervalInvalid,
	MessageNotFound.Code:        MessageNotFound,
	MessageNotDraft.Code:        MessageNotDraft,
	MessageRecipientMissing.Code: MessageRecipientMissing,
	ContactNotFound.Code:        ContactNotFound,
	ContactLimitReached.Code:    ContactLimitReached,
	ContactEmailInvalid.Code:    ContactEmailInvalid,
	InternalTokenInvalid.Code:   InternalTokenInvalid,
	RateLimited.Code:            RateLimited,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
