package logic

import (
	"context"
	"errors"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/model"
	"cfbattle/repo"
	"cfbattle/response"
	"cfbattle/types"
	"cfbattle/utils/jwtUtils"
)

type LoginLogic struct {
}

const (
	EMAIL_REGEX  = "^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}$"
	HANDLE_REGEX = "^[a-zA-Z0-9_.-]{3,24}$"
)

func NewLoginLogic() *LoginLogic {
	return &LoginLogic{}
}

func tokenTTL() time.Duration {
	expireDay := 7
	if global.Config != nil && global.Config.JWT.ExpireDay > 0 {
		expireDay = global.Config.JWT.ExpireDay
	}
	return time.Duration(expireDay) * 24 * time.Hour
}

func (l *LoginLogic) Register(ctx context.Context, req types.RegisterReq) (resp types.LoginResp, err error) {
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	re := regexp.MustCompile(EMAIL_REGEX)
	if isMatch := re.MatchString(req.Email); !isMatch {
		return resp, response.ErrResp(errors.New("email not valid"), response.PARAM_NOT_VALID)
	}
	if req.Handle != "" && !regexp.MustCompile(HANDLE_REGEX).MatchString(req.Handle) {
		return resp, response.ErrResp(errors.New("handle not valid"), response.PARAM_NOT_VALID)
	}
	userRepo := repo.NewUserRepo(global.DB)
	exist, err := userRepo.GetByEmail(req.Email)
	if err == nil && exist.ID != 0 {
		return resp, response.ErrResp(errors.New("user exists"), response.EMAIL_EXIST)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		zlog.CtxErrorf(ctx, "GetByEmail err: %v", err)
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zlog.CtxErrorf(ctx, "bcrypt err: %v", err)
		return resp, response.ErrResp(err, response.COMMON_FAIL)
	}
	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
		Username: req.Username,
		Handle:   req.Handle,
	}
	if err = userRepo.Create(&user); err != nil {
		zlog.CtxErrorf(ctx, "Create user err: %v", err)
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	token, err := jwtUtils.GenToken(user.ID, user.Username, global.ROLE_USER, tokenTTL())
	if err != nil {
		zlog.CtxErrorf(ctx, "GenToken err: %v", err)
		return resp, response.ErrResp(err, response.COMMON_FAIL)
	}
	return types.LoginResp{
		Token: token,
		User:  toUserInfo(user),
	}, nil
}

func (l *LoginLogic) Login(ctx context.Context, req types.LoginReq) (resp types.LoginResp, err error) {
	if req.Email == "" || req.Password == "" {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	userRepo := repo.NewUserRepo(global.DB)
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(err, response.MEMBER_NOT_EXIST)
		}
		zlog.CtxErrorf(ctx, "GetByEmail err: %v", err)
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return resp, response.ErrResp(err, response.PASSWORD_ERROR)
	}
	token, err := jwtUtils.GenToken(user.ID, user.Username, global.ROLE_USER, tokenTTL())
	if err != nil {
		zlog.CtxErrorf(ctx, "GenToken err: %v", err)
		return resp, response.ErrResp(err, response.COMMON_FAIL)
	}
	return types.LoginResp{
		Token: token,
		User:  toUserInfo(user),
	}, nil
}

func (l *LoginLogic) GetProfile(ctx context.Context, userID int64) (resp types.UserInfo, err error) {
	userRepo := repo.NewUserRepo(global.DB)
	user, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(err, response.MEMBER_NOT_EXIST)
		}
		zlog.CtxErrorf(ctx, "GetByID err: %v", err)
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	return toUserInfo(user), nil
}

// UpdateProfile 修改用户名与Codeforces账号绑定
func (l *LoginLogic) UpdateProfile(ctx context.Context, userID int64, req types.UpdateProfileReq) (resp types.UserInfo, err error) {
	if req.Username == "" && req.Handle == "" {
		return resp, response.ErrResp(errors.New("param blank"), response.PARAM_NOT_COMPLETE)
	}
	if req.Handle != "" && !regexp.MustCompile(HANDLE_REGEX).MatchString(req.Handle) {
		return resp, response.ErrResp(errors.New("handle not valid"), response.PARAM_NOT_VALID)
	}
	userRepo := repo.NewUserRepo(global.DB)
	user, err := userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, response.ErrResp(err, response.MEMBER_NOT_EXIST)
		}
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Handle != "" {
		user.Handle = req.Handle
	}
	if err = userRepo.UpdateProfile(user); err != nil {
		zlog.CtxErrorf(ctx, "UpdateProfile err: %v", err)
		return resp, response.ErrResp(err, response.DATABASE_ERROR)
	}
	return toUserInfo(user), nil
}

func toUserInfo(user model.User) types.UserInfo {
	return types.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Handle:   user.Handle,
		Rating:   user.Rating,
	}
}
