package utils

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cfbattle/log/zlog"
)

/*
GetRootPath 获取项目根目录。
优先尝试获取当前可执行文件所在的目录，如果失败则返回当前工作目录。
*/
func GetRootPath(myPath string) string {
	exePath, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return filepath.Join(wd, myPath)
	}

	rootPath := filepath.Dir(exePath)

	// go run 时可执行文件在临时构建目录，回退到工作目录
	if filepath.Base(rootPath) == "exe" || filepath.Base(rootPath) == "main" || strings.Contains(rootPath, "go-build") {
		wd, _ := os.Getwd()
		return filepath.Join(wd, myPath)
	}

	return filepath.Join(rootPath, myPath)
}

// StructToMap
//
//	@Description: struct to map
//	@param value
//	@return map[string]interface{}
func StructToMap(value interface{}) map[string]interface{} {
	m := make(map[string]interface{})
	resJson, err := json.Marshal(value)
	if err != nil {
		zlog.Errorf("Json Marshal failed ,msg: %s", err.Error())
		return nil
	}
	err = json.Unmarshal(resJson, &m)
	if err != nil {
		zlog.Errorf("Json Unmarshal failed,msg : %s", err.Error())
		return nil
	}
	return m
}

// StructToJson
//
//	@Description: struct to json
//	@param value
//	@return string
//	@return error
func StructToJson(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), err
}

// JsonToStruct
//
//	@Description: json to struct
//	@param str
//	@param value
//	@return error
func JsonToStruct(str string, value interface{}) error {
	return json.Unmarshal([]byte(str), value)
}

// RandomCode
//
//	@Description: 生成6位对战邀请码
//	@return string
func RandomCode() string {
	const charset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	result := make([]byte, 6)
	rand.Seed(time.Now().UnixNano())
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

// RecordTime a tool to record time
// e.g [defer utils.RecordTime(time.Now())()]
func RecordTime(start time.Time) func() {
	return func() {
		end := time.Now()
		zlog.Debugf("use time:%d", end.Unix()-start.Unix())
	}
}
