// Package manifest работает с декларацией файлов job.
//
// Коллекция файлов приходит в POST /job как сериализованный YAML:
//
//	files:
//	  - path: tests/login.yml
//	    type: test
//	    content: |
//	      ...
//	  - path: fixtures/users.yml
//	    type: resource
//	    content: ...
//
// Пакет отвечает за:
//   - Парсинг коллекции из YAML
//   - Валидацию (непустые пути, известные типы, уникальность путей)
//   - Извлечение упорядоченного списка test-путей
//   - Типы выходного манифеста компилятора (CompiledTest)
package manifest
