package browser

import (
	"github.com/playwright-community/playwright-go"
)

// stealthScript 在每个页面加载前执行，抹掉 headless Chromium 的自动化痕迹。
// 创作者后台会读这些特征判定机器人。
const stealthScript = `
(() => {
    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
    });

    window.chrome = window.chrome || {};
    window.chrome.runtime = window.chrome.runtime || {};

    Object.defineProperty(navigator, 'languages', {
        get: () => ['zh-CN', 'zh', 'en'],
    });

    Object.defineProperty(navigator, 'plugins', {
        get: () => [1, 2, 3, 4, 5],
    });

    const originalQuery = window.navigator.permissions.query;
    window.navigator.permissions.query = (parameters) => (
        parameters.name === 'notifications'
            ? Promise.resolve({ state: Notification.permission })
            : originalQuery(parameters)
    );

    const getParameter = WebGLRenderingContext.prototype.getParameter;
    WebGLRenderingContext.prototype.getParameter = function (parameter) {
        // UNMASKED_VENDOR_WEBGL / UNMASKED_RENDERER_WEBGL
        if (parameter === 37445) {
            return 'Intel Inc.';
        }
        if (parameter === 37446) {
            return 'Intel Iris OpenGL Engine';
        }
        return getParameter.call(this, parameter);
    };

    ['height', 'width'].forEach(property => {
        const imageDescriptor = Object.getOwnPropertyDescriptor(HTMLImageElement.prototype, property);
        Object.defineProperty(HTMLImageElement.prototype, property, {
            ...imageDescriptor,
            get: function () {
                if (this.complete && this.naturalHeight === 0) {
                    return 16;
                }
                return imageDescriptor.get.apply(this);
            },
        });
    });
})();
`

// injectStealthScript 给上下文注入反检测脚本，新开页面自动生效
func injectStealthScript(context playwright.BrowserContext) error {
	return context.AddInitScript(playwright.Script{
		Content: playwright.String(stealthScript),
	})
}
