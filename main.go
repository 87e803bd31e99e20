// @title LearnHub 后端 API
// @version 1.0
// @description LearnHub 学习平台的后端服务器：学习进度、测验与学习助手。

// @contact.name API支持
// @contact.email support@learnhub.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import "learnhub_backend/cmd"

func main() {
	cmd.Execute()
}
