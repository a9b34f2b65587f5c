package types

type RegisterReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Username string `json:"username" form:"username"`
	Handle   string `json:"handle" form:"handle"`
}

type LoginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type UserInfo struct {
	ID       int64  `json:"id,string"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Handle   string `json:"handle"`
	Rating   int    `json:"rating"`
}

type LoginResp struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type UpdateProfileReq struct {
	Username string `json:"username" form:"username"`
	Handle   string `json:"handle" form:"handle"`
}
