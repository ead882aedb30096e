package credentialhandler

import "github.com/pion/webrtc/v4"

type CredentialsQuery struct {
	UserID string `form:"user_id" binding:"required,max=256,excludes=:" example:"user123"`
} // @name CredentialsQuery

type IceServersResponse struct {
	IceServers []webrtc.ICEServer `json:"iceServers"`
} // @name IceServersResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
