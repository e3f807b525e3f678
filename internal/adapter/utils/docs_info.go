// @title           Offline Document RAG API
// @version         1.0
// @description     Local-first document question answering: hierarchical vector index, knowledge graph enrichment, streamed answers.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package utils

//run redis
//docker run -p 6379:6379 -d redis

//run the model server
//llama-server -m phi-3-mini-4k-instruct.Q4_K_M.gguf --port 8080

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
