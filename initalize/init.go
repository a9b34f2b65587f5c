package initalize

import (
	"cfbattle/cmd/flags"
	"cfbattle/global"
	"cfbattle/log/zlog"
	"cfbattle/logic"
	"cfbattle/utils"
)

func Init() {
	// 解析命令行参数
	flags.Parse()

	// 启动前缀展示
	introduce()

	// 初始化根目录
	InitPath()

	// 加载配置文件
	InitConfig()

	// 正式初始化日志
	InitLog(global.Config)

	// 初始化数据库
	InitDataBase(*global.Config)
	InitRedis(*global.Config)

	// 对命令行参数进行处理
	flags.Run()

	// 启动Codeforces请求网关
	logic.GetCfGateway().Start()

	// 恢复重启前处于进行中的对战
	if err := logic.StartAllActiveBattles(); err != nil {
		zlog.Warnf("恢复进行中的对战失败：%v", err)
	}
}

func InitPath() {
	global.Path = utils.GetRootPath("")
}
