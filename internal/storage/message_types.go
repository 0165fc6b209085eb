package storage

// EmailMessage 经由消息队列投递的邮件通知
type EmailMessage struct {
	ApplicationID string `json:"application_id"`
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}
